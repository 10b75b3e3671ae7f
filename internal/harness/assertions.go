package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/remoteq/internal/remote"
)

// checkCompile compares one compile event against its expectation.
func checkCompile(result *Result, tag string, want *DialectExpect, ev TraceEvent) {
	if want.Error != "" {
		switch {
		case ev.Error == "":
			result.AddError(fmt.Sprintf("%s: expected error containing %q, compiled to %q", tag, want.Error, ev.Query))
		case !strings.Contains(ev.Error, want.Error):
			result.AddError(fmt.Sprintf("%s: error %q does not contain %q", tag, ev.Error, want.Error))
		}
		return
	}

	if ev.Error != "" {
		result.AddError(fmt.Sprintf("%s: unexpected error: %s", tag, ev.Error))
		return
	}
	if ev.Query != want.Query {
		result.AddError(fmt.Sprintf("%s: query mismatch\n  want: %s\n  got:  %s", tag, want.Query, ev.Query))
	}

	if len(ev.Warnings) != len(want.Warnings) {
		result.AddError(fmt.Sprintf("%s: expected %d warning(s), got %d: %q",
			tag, len(want.Warnings), len(ev.Warnings), ev.Warnings))
		return
	}
	for i, w := range want.Warnings {
		if !strings.Contains(ev.Warnings[i], w) {
			result.AddError(fmt.Sprintf("%s: warning %d %q does not contain %q", tag, i, ev.Warnings[i], w))
		}
	}
}

// checkInclude compares the rendered include value.
func checkInclude(result *Result, want string, buildErr error) {
	if buildErr != nil {
		result.AddError(fmt.Sprintf("include: query definition is invalid: %v", buildErr))
		return
	}
	if result.Include != want {
		result.AddError(fmt.Sprintf("include mismatch\n  want: %s\n  got:  %s", want, result.Include))
	}
}

// checkFetch compares the enumeration outcome against the fetch
// expectation.
func checkFetch(result *Result, want FetchExpect, page remote.Page[map[string]any], err error) {
	switch want.Error {
	case FetchErrorTransport:
		if !remote.IsTransportError(err) {
			result.AddError(fmt.Sprintf("fetch: expected transport error, got %v", err))
		}
		return
	case FetchErrorDecode:
		if !remote.IsDecodeError(err) {
			result.AddError(fmt.Sprintf("fetch: expected decode error, got %v", err))
		}
		return
	}

	if err != nil {
		result.AddError(fmt.Sprintf("fetch: unexpected error: %v", err))
		return
	}
	if want.Items != nil && len(page.Items) != *want.Items {
		result.AddError(fmt.Sprintf("fetch: expected %d item(s), got %d", *want.Items, len(page.Items)))
	}
	if want.Total != nil {
		switch {
		case !page.HasTotal:
			result.AddError(fmt.Sprintf("fetch: expected total %d, response carried none", *want.Total))
		case page.Total != *want.Total:
			result.AddError(fmt.Sprintf("fetch: expected total %d, got %d", *want.Total, page.Total))
		}
	}
}
