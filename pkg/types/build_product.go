// SPDX-License-Identifier: MPL-2.0

package types

const (
	// ProductExecutable is a linked executable.
	ProductExecutable BuildProductType = "Executable"
	// ProductDynamicLibrary is a linked shared library.
	ProductDynamicLibrary BuildProductType = "DynamicLibrary"
	// ProductSymbolFile is debug information produced next to a binary.
	ProductSymbolFile BuildProductType = "SymbolFile"
	// ProductBuildResource is any other file the build produced (static
	// libraries, import libraries, precompiled outputs).
	ProductBuildResource BuildProductType = "BuildResource"
)

// BuildProductType classifies a file reported in the build receipt.
type BuildProductType string

// ProductTypeFor maps a binary type to the product type of its output.
func ProductTypeFor(t BinaryType) BuildProductType {
	switch t {
	case BinaryExecutable:
		return ProductExecutable
	case BinaryDynamicLibrary:
		return ProductDynamicLibrary
	default:
		return ProductBuildResource
	}
}
