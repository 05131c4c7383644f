package services

import (
	"strings"
	"testing"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateItemName(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		invalid bool
	}{
		{name: "plain folder name", input: "reports", want: "reports"},
		{name: "file with extension", input: "jan.pdf", want: "jan.pdf"},
		{name: "surrounding whitespace trimmed", input: "  budget.xlsx  ", want: "budget.xlsx"},
		{name: "internal spaces allowed", input: "Q1 summary.docx", want: "Q1 summary.docx"},
		{name: "empty", input: "", invalid: true},
		{name: "whitespace only", input: "   ", invalid: true},
		{name: "forward slash", input: "a/b", invalid: true},
		{name: "backslash", input: `a\b`, invalid: true},
		{name: "two dots", input: "archive.tar.gz", invalid: true},
		{name: "space before dot", input: "report .pdf", invalid: true},
		{name: "space after dot", input: "report. pdf", invalid: true},
		{name: "control character", input: "bad\x00name", invalid: true},
		{name: "over length limit", input: strings.Repeat("a", maxItemNameLength+1), invalid: true},
		{name: "exactly at length limit", input: strings.Repeat("a", maxItemNameLength), want: strings.Repeat("a", maxItemNameLength)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateItemName(tc.input)
			if tc.invalid {
				require.Error(t, err)
				assert.True(t, apperrors.IsInvalidName(err), "expected invalid-name error, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
