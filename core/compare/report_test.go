package compare

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/benedoc-inc/pdfcmp/core/object"
)

func sampleResult(t *testing.T) *Result {
	t.Helper()
	l := dict("Kids", object.NewArray(object.Integer(1), object.Str("abc")))
	r := dict("Kids", object.NewArray(object.Integer(2), object.Str("abd")))
	return compareDicts(t, l, r, many())
}

func TestTextReport(t *testing.T) {
	res := sampleResult(t)
	text := res.Text()
	blocks := strings.Split(strings.TrimSuffix(text, "---\n"), "---\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "values are different: expected 1, found 2\ntest/Kids[0]\n", blocks[0])
	assert.True(t, strings.HasSuffix(blocks[1], "\ntest/Kids[1]@2\n"))

	res.VisualSummary = "pages differing visually: 1"
	assert.True(t, strings.HasSuffix(res.Text(), "---\npages differing visually: 1\n"))
}

func TestJSONReport(t *testing.T) {
	data, err := sampleResult(t).JSON()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	want := map[string]interface{}{
		"equal": false,
		"differences": map[string]interface{}{
			"count":         float64(2),
			"limit_reached": false,
			"items": []interface{}{
				map[string]interface{}{
					"message": "values are different: expected 1, found 2",
					"path": map[string]interface{}{
						"anchor": "test",
						"segments": []interface{}{
							map[string]interface{}{"key": "Kids"},
							map[string]interface{}{"index": float64(0)},
						},
					},
				},
				map[string]interface{}{
					"message": got["differences"].(map[string]interface{})["items"].([]interface{})[1].(map[string]interface{})["message"],
					"path": map[string]interface{}{
						"anchor": "test",
						"segments": []interface{}{
							map[string]interface{}{"key": "Kids"},
							map[string]interface{}{"index": float64(1)},
							map[string]interface{}{"offset": float64(2)},
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("JSON report mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONReportEqual(t *testing.T) {
	res := compareDicts(t, dict(), dict(), many())
	out, err := GenerateJSONReport(res)
	require.NoError(t, err)
	assert.Contains(t, out, `"items": []`)
	assert.Contains(t, out, `"equal": true`)
}

func TestXMLReport(t *testing.T) {
	data, err := sampleResult(t).XML()
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<report equal="false">`)
	assert.Contains(t, out, `<differences count="2" limitReached="false">`)
	assert.Contains(t, out, `<path anchor="test">`)
	assert.Contains(t, out, "<key>Kids</key>")
	assert.Contains(t, out, "<index>1</index>")
	assert.Contains(t, out, "<offset>2</offset>")
}

func TestYAMLReport(t *testing.T) {
	data, err := sampleResult(t).YAML()
	require.NoError(t, err)

	var got struct {
		Equal       bool `yaml:"equal"`
		Differences struct {
			Count int `yaml:"count"`
			Items []struct {
				Message string `yaml:"message"`
				Path    struct {
					Anchor   string           `yaml:"anchor"`
					Segments []map[string]any `yaml:"segments"`
				} `yaml:"path"`
			} `yaml:"items"`
		} `yaml:"differences"`
	}
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.False(t, got.Equal)
	assert.Equal(t, 2, got.Differences.Count)
	require.Len(t, got.Differences.Items, 2)
	assert.Equal(t, []map[string]any{{"key": "Kids"}, {"index": 1}, {"offset": 2}}, got.Differences.Items[1].Path.Segments)
}

func TestGenerateReport(t *testing.T) {
	res := sampleResult(t)
	for _, f := range Formats {
		out, err := GenerateReport(res, f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out, f)
	}
	_, err := GenerateReport(res, "pdf")
	assert.Error(t, err)
}
