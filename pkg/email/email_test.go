package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"jane@example.com":            "Jane",
		"jane.doe@example.com":        "Jane Doe",
		"ops.team+alerts@example.com": "Ops Alerts",
		"first_middle_last@x.io":      "First Last",
		"@example.com":                "User",
		"...@example.com":             "User",
		"noatsign":                    "Noatsign",
	}
	for in, want := range cases {
		assert.Equal(t, want, DisplayName(in), in)
	}
}
