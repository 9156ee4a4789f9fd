// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/nbuild/nbuild/cmd/nbuild"

func main() {
	cmd.Execute()
}
