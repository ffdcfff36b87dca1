package mcp

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolArguments(t *testing.T) {
	t.Parallel()

	args, errResult := parseToolArguments(mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: map[string]interface{}{"module": "os"}},
	})
	require.Nil(t, errResult)
	assert.Equal(t, "os", args["module"])

	_, errResult = parseToolArguments(mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: "module=os"},
	})
	require.NotNil(t, errResult)
	assert.True(t, errResult.IsError)
}

func TestParseStringArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     map[string]interface{}
		required bool
		want     string
		wantErr  string
	}{
		{"required present", map[string]interface{}{"module": "os.path"}, true, "os.path", ""},
		{"required missing", map[string]interface{}{}, true, "", "module parameter is required"},
		{"required empty", map[string]interface{}{"module": ""}, true, "", "module cannot be empty"},
		{"optional missing", map[string]interface{}{}, false, "", ""},
		{"optional empty", map[string]interface{}{"module": ""}, false, "", ""},
		{"wrong type", map[string]interface{}{"module": 3.0}, false, "", "module must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseStringArg(tt.args, "module", tt.required)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42, parseIntArg(map[string]interface{}{"limit": float64(42)}, "limit", 10))
	assert.Equal(t, 0, parseIntArg(map[string]interface{}{"limit": float64(0)}, "limit", 10))
	assert.Equal(t, 10, parseIntArg(map[string]interface{}{}, "limit", 10))
	assert.Equal(t, 10, parseIntArg(map[string]interface{}{"limit": "many"}, "limit", 10))
}

func TestParseBoolArg(t *testing.T) {
	t.Parallel()

	assert.True(t, parseBoolArg(map[string]interface{}{"exported_only": true}, "exported_only", false))
	assert.False(t, parseBoolArg(map[string]interface{}{"exported_only": false}, "exported_only", true))
	assert.True(t, parseBoolArg(map[string]interface{}{}, "exported_only", true))
	assert.False(t, parseBoolArg(map[string]interface{}{"exported_only": "yes"}, "exported_only", false))
}

func TestParseClampedInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args map[string]interface{}
		def  int
		want int
	}{
		{"within bounds", map[string]interface{}{"limit": float64(5)}, 20, 5},
		{"below minimum", map[string]interface{}{"limit": float64(-5)}, 20, 1},
		{"above maximum", map[string]interface{}{"limit": float64(500)}, 20, 200},
		{"missing uses default", map[string]interface{}{}, 20, 20},
		{"default clamped", map[string]interface{}{}, 1000, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseClampedInt(tt.args, "limit", tt.def, 1, 200))
		})
	}
}
