// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	DescriptorNotFoundId Id = iota + 1
	DescriptorInvalidId
	UnknownModuleId
	ModuleAlreadyBoundId
	DependencyCycleId
	RestrictedFolderId
	RuntimeDependencyConflictId
	OutputCountId
	LibraryCollisionId
	ConfigLoadFailedId
	ActionFailedId
	ToolchainCommandMissingId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const docsBase = "https://github.com/nbuild/nbuild/blob/main/docs/"

var (
	render = glamour.Render

	descriptorNotFoundIssue = &Issue{
		id:       DescriptorNotFoundId,
		docLinks: []HttpLink{docsBase + "targets.md"},
		mdMsg: `
# No target descriptor found!

nbuild looks for an ` + "`nbtarget.cue`" + ` in the project directory.

## Things you can try:
- Run nbuild from the project root, or pass it explicitly:
~~~
$ nbuild build --project /path/to/project
~~~

- Create a minimal descriptor:
~~~cue
name: "Demo"
type: "game"
~~~`,
	}

	descriptorInvalidIssue = &Issue{
		id:       DescriptorInvalidId,
		docLinks: []HttpLink{docsBase + "targets.md", docsBase + "modules.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
		mdMsg: `
# Invalid descriptor

An ` + "`nbtarget.cue`" + ` or ` + "`nbmodule.cue`" + ` file failed schema validation.

## Things you can try:
- Read the reported field path; it names the offending value
- Check that module names are identifiers (letters, digits, underscores)
- Check that ` + "`type`" + ` values are spelled like the documented enums`,
	}

	unknownModuleIssue = &Issue{
		id:       UnknownModuleId,
		docLinks: []HttpLink{docsBase + "modules.md"},
		mdMsg: `
# Unknown module

A binary or a dependency list names a module that was not discovered.

## Things you can try:
- Check the spelling (names are matched case-insensitively)
- Make sure the module directory holds an ` + "`nbmodule.cue`" + `
- Add the directory containing it to ` + "`module_roots`" + ` in ` + "`nbtarget.cue`",
	}

	moduleAlreadyBoundIssue = &Issue{
		id:       ModuleAlreadyBoundId,
		docLinks: []HttpLink{docsBase + "targets.md"},
		mdMsg: `
# Module listed in two binaries

Every module is owned by exactly one binary.

## Things you can try:
- Remove the module from one of the ` + "`binaries`" + ` entries
- Depend on the module instead; the owning binary is linked automatically`,
	}

	dependencyCycleIssue = &Issue{
		id:       DependencyCycleId,
		docLinks: []HttpLink{docsBase + "modules.md"},
		mdMsg: `
# Dependency cycle detected

Modules depend on each other without declaring the edge as circular.

## Things you can try:
- Break the cycle by moving shared code into a new module
- If the cycle is intended, list the dependency in ` + "`circular`" + ` as well
- Inspect the chain:
~~~
$ nbuild deps --why <Module>
~~~`,
	}

	restrictedFolderIssue = &Issue{
		id:       RestrictedFolderId,
		docLinks: []HttpLink{docsBase + "restricted-folders.md"},
		mdMsg: `
# Restricted content referenced

A binary outside a restricted folder (for example ` + "`NoRedist`" + `) links a module that lives inside one.

## Things you can try:
- Move the binary output under a folder of the same name
- Remove the dependency on the restricted module
- Adjust ` + "`restricted_folders`" + ` in your config if the folder is not actually restricted`,
	}

	runtimeDependencyConflictIssue = &Issue{
		id:       RuntimeDependencyConflictId,
		docLinks: []HttpLink{docsBase + "runtime-dependencies.md"},
		mdMsg: `
# Conflicting runtime dependency

Two modules stage different files to the same destination, or stage the same file with different types.

## Things you can try:
- Give one of the files a different ` + "`destination`" + `
- Use the same ` + "`type`" + ` for both declarations`,
	}

	outputCountIssue = &Issue{
		id:       OutputCountId,
		docLinks: []HttpLink{docsBase + "targets.md"},
		mdMsg: `
# Unexpected binary outputs

The operation needs a binary with exactly one output file. Fat binaries with several architectures have one output each.

## Things you can try:
- Build a single architecture
- Pass the architecture explicitly where the command supports it`,
	}

	libraryCollisionIssue = &Issue{
		id:       LibraryCollisionId,
		docLinks: []HttpLink{docsBase + "linking.md"},
		mdMsg: `
# Library name collision

Two binaries contribute link libraries with the same file name, so the linker would pick one arbitrarily.

## Things you can try:
- Rename one of the binaries
- Drop the dependency that pulls in the second library`,
	}

	configLoadFailedIssue = &Issue{
		id:       ConfigLoadFailedId,
		docLinks: []HttpLink{docsBase + "configuration.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
		mdMsg: `
# Failed to load configuration!

We couldn't load your nbuild configuration file.

## Things you can try:
- Inspect the merged configuration:
~~~
$ nbuild config show
~~~

- Write a fresh default file:
~~~
$ nbuild config init
~~~

- Override a single value from the environment:
~~~
$ NBUILD_WORKERS=4 nbuild build
~~~`,
	}

	actionFailedIssue = &Issue{
		id:       ActionFailedId,
		docLinks: []HttpLink{docsBase + "toolchain.md"},
		mdMsg: `
# Build step failed

A compile, link or post-build command exited with an error. Its output is shown above.

## Things you can try:
- Rebuild with verbose logging to see every command:
~~~
$ nbuild build -v
~~~

- Print the plan without running it:
~~~
$ nbuild build --plan
~~~`,
	}

	toolchainCommandMissingIssue = &Issue{
		id:       ToolchainCommandMissingId,
		docLinks: []HttpLink{docsBase + "toolchain.md", docsBase + "configuration.md"},
		mdMsg: `
# No command configured for a build step

A binary needs a step (for example static linking or import libraries) that has no template.

## Things you can try:
- Set the template under ` + "`toolchain`" + ` in your config file
- See the defaults with ` + "`nbuild config show`",
	}

	issues = map[Id]*Issue{
		descriptorNotFoundIssue.Id():        descriptorNotFoundIssue,
		descriptorInvalidIssue.Id():         descriptorInvalidIssue,
		unknownModuleIssue.Id():             unknownModuleIssue,
		moduleAlreadyBoundIssue.Id():        moduleAlreadyBoundIssue,
		dependencyCycleIssue.Id():           dependencyCycleIssue,
		restrictedFolderIssue.Id():          restrictedFolderIssue,
		runtimeDependencyConflictIssue.Id(): runtimeDependencyConflictIssue,
		outputCountIssue.Id():               outputCountIssue,
		libraryCollisionIssue.Id():          libraryCollisionIssue,
		configLoadFailedIssue.Id():          configLoadFailedIssue,
		actionFailedIssue.Id():              actionFailedIssue,
		toolchainCommandMissingIssue.Id():   toolchainCommandMissingIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
