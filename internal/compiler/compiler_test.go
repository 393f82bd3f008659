package compiler

import (
	"os"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

const demoCUE = `
options: {
	debug: true
	useCompression: true
	compressionKey: "s"
}
routes: [{
	path: ""
	config: {
		stateConfig: {
			pageSize: 30
			filter: ""
			completed: false
			page: { value: "1;2;3", typeConvertor: "Number", multi: true, count: 3 }
			openToggles: { value: 60, typeConvertor: "Boolean", multi: true, length: 6, removeInvalid: true }
		}
	}
	children: [{
		path: "users"
		config: {
			removeUnknown: true
			stateConfig: {
				pageSize: 10
				role: { value: null, typeConvertor: "String", allowedValues: [null, "ADMIN"] }
			}
		}
	}]
}]
`

const demoYAML = `
options:
  debug: true
  useCompression: true
  compressionKey: s
routes:
  - path: ""
    config:
      stateConfig:
        pageSize: 30
        filter: ""
        completed: false
        page: { value: "1;2;3", typeConvertor: Number, multi: true, count: 3 }
        openToggles: { value: 60, typeConvertor: Boolean, multi: true, length: 6, removeInvalid: true }
    children:
      - path: users
        config:
          removeUnknown: true
          stateConfig:
            pageSize: 10
            role: { value: null, typeConvertor: String, allowedValues: [null, ADMIN] }
`

func compileCUE(t *testing.T, src string) (*Document, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileRoutes(v)
}

func assertDemoDocument(t *testing.T, doc *Document) {
	t.Helper()

	assert.Equal(t, ir.Options{Debug: true, UseCompression: true, CompressionKey: "s"}, doc.Options)
	require.Len(t, doc.Routes, 1)

	root := doc.Routes[0]
	assert.Equal(t, "", root.Path)
	require.NotNil(t, root.Config)

	names := make([]string, 0, len(root.Config.Fields))
	for _, f := range root.Config.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"pageSize", "filter", "completed", "page", "openToggles"}, names)

	pageSize, _ := root.Config.Field("pageSize")
	assert.Equal(t, ir.KindScalar, pageSize.Kind)
	assert.Equal(t, ir.ConvertNumber, pageSize.Converter)
	assert.Equal(t, ir.Number(30), pageSize.Default)

	filter, _ := root.Config.Field("filter")
	assert.Equal(t, ir.ConvertString, filter.Converter)
	assert.Equal(t, ir.String(""), filter.Default)

	completed, _ := root.Config.Field("completed")
	assert.Equal(t, ir.ConvertBoolean, completed.Converter)
	assert.Equal(t, ir.Bool(false), completed.Default)

	page, _ := root.Config.Field("page")
	assert.Equal(t, ir.KindMulti, page.Kind)
	assert.Equal(t, ir.ConvertNumber, page.Converter)
	assert.Equal(t, 3, page.Count)

	toggles, _ := root.Config.Field("openToggles")
	assert.Equal(t, ir.KindBinaryBooleanVector, toggles.Kind)
	assert.Equal(t, 6, toggles.VectorLength)
	assert.True(t, toggles.RemoveInvalidOverflow)

	require.Len(t, root.Children, 1)
	users := root.Children[0]
	assert.Equal(t, "users", users.Path)
	assert.True(t, users.Config.RemoveUnknown())

	role, _ := users.Config.Field("role")
	assert.Equal(t, ir.Null{}, role.Default)
	assert.Equal(t, []ir.Value{ir.Null{}, ir.String("ADMIN")}, role.AllowedValues)

	assert.Len(t, doc.Chain("/users"), 2)
	assert.Empty(t, ValidateTree(doc))
}

func TestCompileRoutesCUE(t *testing.T) {
	doc, err := compileCUE(t, demoCUE)
	require.NoError(t, err)
	assertDemoDocument(t, doc)
}

func TestCompileYAML(t *testing.T) {
	doc, err := CompileYAML([]byte(demoYAML))
	require.NoError(t, err)
	assertDemoDocument(t, doc)
}

func TestCompileCUEIgnoresDefinitions(t *testing.T) {
	doc, err := compileCUE(t, `
		#Paging: { pageSize: 20 }
		routes: [{ path: "list", config: stateConfig: #Paging }]
	`)
	require.NoError(t, err)

	require.Len(t, doc.Routes, 1)
	f, ok := doc.Routes[0].Config.Field("pageSize")
	require.True(t, ok)
	assert.Equal(t, ir.Number(20), f.Default)
}

func TestCompileRepoDemoCUE(t *testing.T) {
	src, err := os.ReadFile("../../testdata/routes/demo.cue")
	require.NoError(t, err)

	doc, err := compileCUE(t, string(src))
	require.NoError(t, err)

	require.Len(t, doc.Routes, 1)
	toggles, ok := doc.Routes[0].Config.Field("openToggles")
	require.True(t, ok)
	assert.Equal(t, ir.KindBinaryBooleanVector, toggles.Kind)
	assert.Equal(t, ir.Number(0), toggles.Default)
	assert.Equal(t, 6, toggles.VectorLength)
	assert.True(t, toggles.RemoveInvalidOverflow)
	assert.Empty(t, ValidateTree(doc))
}

func TestCompileVectorLengthFromDefault(t *testing.T) {
	doc, err := CompileYAML([]byte(`
routes:
  - path: ""
    config:
      stateConfig:
        flags: { value: 5, typeConvertor: Boolean, multi: true }
        none: { value: 0, typeConvertor: Boolean, multi: true }
`))
	require.NoError(t, err)

	flags, _ := doc.Routes[0].Config.Field("flags")
	assert.Equal(t, ir.KindBinaryBooleanVector, flags.Kind)
	assert.Equal(t, 3, flags.VectorLength)

	none, _ := doc.Routes[0].Config.Field("none")
	assert.Equal(t, 1, none.VectorLength)
}

func TestCompileMultiDefaultsSeparator(t *testing.T) {
	doc, err := CompileYAML([]byte(`
routes:
  - path: ""
    config:
      stateConfig:
        tags: { value: "a,b", multi: true, separator: "," }
        ids: { value: "", typeConvertor: Number, multi: true }
`))
	require.NoError(t, err)

	tags, _ := doc.Routes[0].Config.Field("tags")
	assert.Equal(t, ir.KindMulti, tags.Kind)
	assert.Equal(t, ",", tags.Sep())
	assert.Equal(t, ir.ConvertString, tags.Converter)

	ids, _ := doc.Routes[0].Config.Field("ids")
	assert.Equal(t, ir.DefaultSeparator, ids.Sep())
}

func TestCompileRequiresRoutes(t *testing.T) {
	_, err := CompileYAML([]byte("options: { debug: true }\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "routes is required")
}

func TestCompileRejectsUnknownKeys(t *testing.T) {
	_, err := CompileYAML([]byte(`
routes:
  - path: users
    config:
      removeUnknownKeys: true
`))

	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "routes[0].config", ce.Field)
	assert.Contains(t, ce.Message, `unknown key "removeUnknownKeys"`)
	assert.Equal(t, 5, ce.Line)
}

func TestCompileRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"routes not a list", "routes: {}\n", "routes: must be a list"},
		{"flag not a boolean", "routes:\n  - path: x\n    config: { inherit: yes please }\n", "inherit: must be a boolean"},
		{"path not a string", "routes:\n  - path: 3\n", "path: must be a string"},
		{"count not an integer", "routes:\n  - config:\n      stateConfig:\n        p: { value: \"\", multi: true, count: 1.5 }\n", "count: must be an integer"},
		{"mapping default", "routes:\n  - config:\n      stateConfig:\n        p: { value: { a: 1 } }\n", "got mapping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileYAML([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileCUEErrorHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`routes: [{ path: "x", config: { caseSensitive: "no" } }]`, cue.Filename("routes.cue"))
	require.NoError(t, v.Err())

	_, err := CompileRoutes(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routes.cue:1:")
	assert.Contains(t, err.Error(), "caseSensitive: must be a boolean")
}

func TestCompileCUERejectsIncomplete(t *testing.T) {
	_, err := compileCUE(t, `routes: [{ path: string }]`)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be concrete")
}

func TestCompileUnknownConverterCompiles(t *testing.T) {
	doc, err := CompileYAML([]byte(`
routes:
  - path: ""
    config:
      stateConfig:
        sort: { value: asc, typeConvertor: Date }
`))
	require.NoError(t, err)

	errs := ValidateTree(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownConverter, errs[0].Code)
	assert.Equal(t, "routes[0].config.stateConfig.sort", errs[0].Field)
}

func TestCompileEmptyYAML(t *testing.T) {
	_, err := CompileYAML(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}
