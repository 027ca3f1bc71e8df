package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// writeGray writes a grey png with the given pixels, row by row.
func writeGray(t *testing.T, w, h int, pix ...uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	copy(img.Pix, pix)
	path := filepath.Join(t.TempDir(), "in.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "opcall", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"list", "describe", "call", "history", "interactive"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingConfig(t *testing.T) {
	_, _, err := execute(t, "list", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestList(t *testing.T) {
	out, _, err := execute(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "invert(in: Image) -> out  invert an image")
	assert.Contains(t, out, "black(width: int, height: int) -> out")
	assert.NotContains(t, out, "im_fliphor")
}

func TestList_JSON(t *testing.T) {
	out, _, err := execute(t, "list", "--format", "json")
	require.NoError(t, err)

	var ops []operationJSON
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	byName := make(map[string]operationJSON, len(ops))
	for _, op := range ops {
		byName[op.Name] = op
	}
	require.Contains(t, byName, "add")
	assert.Equal(t, []string{"left", "right"}, byName["add"].Inputs)
	assert.Equal(t, []string{"out"}, byName["add"].Outputs)
}

func TestDescribe(t *testing.T) {
	out, _, err := execute(t, "describe", "invert")
	require.NoError(t, err)
	assert.Contains(t, out, "invert(in: Image) -> out")
	assert.Contains(t, out, "Example:")

	out, _, err = execute(t, "describe", "invert", "--sphinx")
	require.NoError(t, err)
	assert.Contains(t, out, ".. method:: invert(in)")

	out, _, err = execute(t, "describe", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "~add")
	assert.NotContains(t, out, "~bandjoin\n")
}

func TestDescribe_JSON(t *testing.T) {
	out, _, err := execute(t, "describe", "max", "--format", "json")
	require.NoError(t, err)

	var d describeJSON
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "max", d.Name)
	require.Len(t, d.RequiredInput, 1)
	assert.Equal(t, "in", d.RequiredInput[0].Name)
	assert.Equal(t, opcall.TypeImage.String(), d.RequiredInput[0].Type)

	var optional []string
	for _, a := range d.OptionalOutput {
		optional = append(optional, a.Name)
	}
	assert.Equal(t, []string{"x", "y", "out_array", "x_array", "y_array"}, optional)
}

func TestDescribe_Errors(t *testing.T) {
	_, _, err := execute(t, "describe", "im_fliphor")
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, _, err = execute(t, "describe", "nope")
	assert.Equal(t, errors.KindUnknownOperation, errors.KindOf(err))

	_, _, err = execute(t, "describe")
	assert.Error(t, err)

	_, _, err = execute(t, "describe", "add", "--all")
	assert.Error(t, err)
}

func TestCall_Scalar(t *testing.T) {
	in := writeGray(t, 2, 2, 0, 100, 200, 255)

	out, _, err := execute(t, "call", "avg", "@"+in)
	require.NoError(t, err)
	assert.Equal(t, "out: 138.75\n", out)
}

func TestCall_WriteImage(t *testing.T) {
	in := writeGray(t, 2, 1, 10, 250)
	dst := filepath.Join(t.TempDir(), "out.png")

	out, _, err := execute(t, "call", "invert", "@"+in, "-o", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "(written)")

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.Gray{Y: 245}, color.GrayModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.Gray{Y: 5}, color.GrayModel.Convert(img.At(1, 0)))
}

func TestCall_WantOptional(t *testing.T) {
	in := writeGray(t, 2, 2, 10, 200, 30, 40)

	out, _, err := execute(t, "call", "max", "@"+in, "--want", "x", "--want", "y", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Outputs  map[string]float64 `json:"outputs"`
		Optional map[string]int     `json:"optional"`
		Shape    string             `json:"shape"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 200.0, res.Outputs["out"])
	assert.Equal(t, map[string]int{"x": 1, "y": 0}, res.Optional)
	assert.Equal(t, "list+named", res.Shape)
}

func TestCall_SetAndOptions(t *testing.T) {
	out, _, err := execute(t, "call", "black", "2", "3", "--set", "bands=3", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Outputs map[string]imageJSON `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Outputs["out"].Width)
	assert.Equal(t, 3, res.Outputs["out"].Height)
	assert.Equal(t, 3, res.Outputs["out"].Bands)

	in := writeGray(t, 3, 1, 1, 9, 5)
	out, _, err = execute(t, "call", "min", "@"+in, "--options", "[size=2]", "--want", "out_array")
	require.NoError(t, err)
	assert.Contains(t, out, "out: 1\n")
	assert.Contains(t, out, "out_array: [1 5]\n")
}

func TestCall_ConstantImage(t *testing.T) {
	in := writeGray(t, 2, 1, 10, 20)

	out, _, err := execute(t, "call", "add", "@"+in, "5", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"width": 2`)
}

func TestCall_DeprecatedAdvisory(t *testing.T) {
	in := writeGray(t, 2, 1, 10, 20)

	_, errOut, err := execute(t, "call", "im_fliphor", "@"+in)
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning:")
	assert.Contains(t, errOut, string(errors.KindDeprecatedUsage))
}

func TestCall_Errors(t *testing.T) {
	in := writeGray(t, 1, 1, 7)

	tests := []struct {
		name string
		kind errors.Kind
		args []string
	}{
		{name: "unknown operation", args: []string{"call", "nope"}, kind: errors.KindUnknownOperation},
		{name: "arity", args: []string{"call", "invert"}, kind: errors.KindArityMismatch},
		{name: "unsupported option", args: []string{"call", "invert", "@" + in, "--set", "bogus=1"}, kind: errors.KindUnsupportedOpt},
		{name: "bad enum", args: []string{"call", "cast", "@" + in, "octonion"}, kind: errors.KindTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.KindOf(err))
		})
	}

	_, _, err := execute(t, "call", "invert", "@"+filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(t, "call", "invert", "@"+in, "--set", "novalue")
	assert.ErrorContains(t, err, "want name=value")

	_, _, err = execute(t, "call", "invert", "@"+in, "-o", filepath.Join(t.TempDir(), "out.jpg"))
	assert.ErrorContains(t, err, "cannot save")

	_, _, err = execute(t, "call", "avg", "@"+in, "-o", filepath.Join(t.TempDir(), "out.png"))
	assert.ErrorContains(t, err, "no image or blob output")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "opcall.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: error\njournal:\n  path: calls.db\n"), 0o644))

	_, _, err := execute(t, "--config", cfgPath, "call", "black", "1", "1")
	require.NoError(t, err)
	_, _, err = execute(t, "--config", cfgPath, "call", "invert")
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "calls.db"))

	out, _, err := execute(t, "--config", cfgPath, "history", "--format", "json")
	require.NoError(t, err)
	var rows []historyJSON
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	ops := []string{rows[0].Operation, rows[1].Operation}
	assert.ElementsMatch(t, []string{"black", "invert"}, ops)

	out, _, err = execute(t, "history", "--db", filepath.Join(dir, "calls.db"), "--failed")
	require.NoError(t, err)
	assert.Contains(t, out, "invert")
	assert.NotContains(t, out, "black")
	assert.Contains(t, out, "of 2 calls")
}

func TestHistory_NoJournal(t *testing.T) {
	_, _, err := execute(t, "history")
	assert.ErrorContains(t, err, "no journal")
}

func TestInteractive_NeedsTerminal(t *testing.T) {
	_, _, err := execute(t, "interactive")
	assert.ErrorContains(t, err, "needs a terminal")
}

func TestInteractiveModel(t *testing.T) {
	ctx := context.Background()
	s, err := (&RootOptions{}).open(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	m := newInteractiveModel(ctx, s)
	assert.Equal(t, "Loading operations...", m.View())

	msg := m.Init()()
	m.Update(msg)
	require.NotEmpty(t, m.ops)

	idx := -1
	for i, d := range m.ops {
		if d.Name == "invert" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	for range idx {
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, idx, m.selected)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stateInputArgs, m.state)
	require.Len(t, m.inputs, 1)

	in := writeGray(t, 1, 1, 55)
	m.inputs[0].SetValue("@" + in)

	res := m.callOperation()
	m.Update(res)
	assert.Equal(t, stateShowResult, m.state)
	require.NoError(t, m.err)
	assert.Contains(t, m.result, "out: ")
	assert.Contains(t, m.View(), "Result of")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, stateSelectOp, m.state)
}

func TestParseArgs(t *testing.T) {
	p := newArgParser(context.Background(), nil)

	tests := []struct {
		want any
		raw  string
		typ  opcall.Type
	}{
		{raw: "3", typ: opcall.TypeInt, want: 3},
		{raw: "2.5", typ: opcall.TypeDouble, want: 2.5},
		{raw: "true", typ: opcall.TypeBool, want: true},
		{raw: "1, 2,3", typ: opcall.TypeArrayDouble, want: []float64{1, 2, 3}},
		{raw: "4,5", typ: opcall.TypeArrayInt, want: []int{4, 5}},
		{raw: "128", typ: opcall.TypeImage, want: 128.0},
		{raw: "255,0,0", typ: opcall.TypeImage, want: []float64{255, 0, 0}},
		{raw: "1,2", typ: opcall.TypeArrayImage, want: []any{1.0, 2.0}},
		{raw: "hello", typ: opcall.TypeBlob, want: []byte("hello")},
		{raw: "exif|icc", typ: opcall.TypeFlags, want: "exif|icc"},
		{raw: "text", typ: opcall.TypeString, want: "text"},
		{raw: "7", typ: opcall.TypeInvalid, want: 7},
		{raw: "0.5", typ: opcall.TypeInvalid, want: 0.5},
		{raw: "word", typ: opcall.TypeInvalid, want: "word"},
	}
	for _, tt := range tests {
		got, err := p.parse(tt.raw, tt.typ, nil)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	enum := &opcall.EnumType{Name: "Direction", Nicks: []string{"horizontal", "vertical"}, Values: []int{0, 1}}
	got, err := p.parse("vertical", opcall.TypeEnum, enum)
	require.NoError(t, err)
	assert.Equal(t, "vertical", got)
	got, err = p.parse("1", opcall.TypeEnum, enum)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	_, err = p.parse("x", opcall.TypeInt, nil)
	assert.Error(t, err)
	_, err = p.parse("abc", opcall.TypeImage, nil)
	assert.ErrorContains(t, err, "neither @file nor a number")
}

func TestSaveFormat(t *testing.T) {
	for path, want := range map[string]string{"a.png": "png", "b.TIF": "tiff", "c.tiff": "tiff"} {
		got, err := saveFormat(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := saveFormat("d.gif")
	assert.Error(t, err)
}
