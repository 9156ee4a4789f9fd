// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/nbuild/nbuild/internal/action"
	"github.com/nbuild/nbuild/internal/binary"
	"github.com/nbuild/nbuild/internal/dag"
	"github.com/nbuild/nbuild/internal/issue"
	"github.com/nbuild/nbuild/internal/module"
	"github.com/nbuild/nbuild/internal/runtimedeps"
	"github.com/nbuild/nbuild/internal/target"
	"github.com/nbuild/nbuild/internal/toolchain"
	"github.com/nbuild/nbuild/pkg/cueutil"
	"github.com/nbuild/nbuild/pkg/types"
)

// classifyError picks the catalog entry and exit code for err. Errors that
// already carry an issue id keep it.
func classifyError(err error) (issue.Id, types.ExitCode) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue, exitUsage
	}

	var (
		cycle  *dag.CycleError
		valErr *cueutil.ValidationError
		actErr *action.Error
	)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return issue.DescriptorNotFoundId, exitUsage
	case errors.As(err, &valErr):
		return issue.DescriptorInvalidId, exitUsage
	case errors.Is(err, target.ErrUnknownModule), errors.Is(err, module.ErrUnknownDependency):
		return issue.UnknownModuleId, exitUsage
	case errors.Is(err, module.ErrAlreadyBound):
		return issue.ModuleAlreadyBoundId, exitUsage
	case errors.As(err, &cycle):
		return issue.DependencyCycleId, exitUsage
	case errors.Is(err, binary.ErrRestrictedFolder):
		return issue.RestrictedFolderId, exitBuildFailed
	case errors.Is(err, runtimedeps.ErrConflict):
		return issue.RuntimeDependencyConflictId, exitBuildFailed
	case errors.Is(err, binary.ErrOutputCount):
		return issue.OutputCountId, exitUsage
	case errors.Is(err, binary.ErrLibraryCollision):
		return issue.LibraryCollisionId, exitBuildFailed
	case errors.Is(err, toolchain.ErrMissingCommand):
		return issue.ToolchainCommandMissingId, exitUsage
	case errors.Is(err, binary.ErrUnknownBinary), errors.Is(err, types.ErrInvalidFilesystemPath):
		return 0, exitUsage
	case errors.As(err, &actErr):
		return issue.ActionFailedId, exitBuildFailed
	default:
		return 0, exitBuildFailed
	}
}

// commandError wraps err for Execute, which prints its message. The
// suggestions, the error chain when verbose, and the catalog entry are
// written to stderr here.
func commandError(stderr io.Writer, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	id, code := classifyError(err)
	if details := formatErrorForDisplay(err, verbose); details != err.Error() {
		fmt.Fprintln(stderr, details)
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
	return &ExitError{Code: code, Err: err}
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors use their own Format; in verbose mode the chain is shown.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
