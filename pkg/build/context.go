// Package build plans and runs a single gn/ninja build of a product,
// component or device.
package build

import (
	"fmt"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/Azure/hb-kit/pkg/config"
)

const (
	// TargetArg selects explicit gn targets; setting it disables packaging.
	TargetArg = "ohos_build_target"
	// FullCompileArg tells gn whether the whole graph is being rebuilt.
	FullCompileArg = "ohos_full_compile"

	LogFileName = "build.log"
)

// Context is the state of one build invocation. It is created per build and
// never shared between builds.
type Context struct {
	RootPath    string
	OutPath     string
	Board       string
	Kernel      string
	Product     string
	ProductPath string
	DevicePath  string
	Compiler    string
	Targets     []string

	// PackagingRequired is cleared as soon as explicit targets are registered.
	PackagingRequired bool
	// FsAttrs are the filesystem attributes (dmverity_enable, tee_enable)
	// that select extra packaging commands.
	FsAttrs sets.Set[string]

	args []string
}

// NewContext starts a build context from the persisted settings.
func NewContext(cfg config.Config) *Context {
	return &Context{
		RootPath:          cfg.RootPath,
		Board:             cfg.Board,
		Kernel:            cfg.Kernel,
		Product:           cfg.Product,
		ProductPath:       cfg.ProductPath,
		DevicePath:        cfg.DevicePath,
		PackagingRequired: true,
		FsAttrs:           sets.New[string](),
	}
}

// Register appends name=value to the gn arguments. Quoted values are
// rendered as name="value"; "true" and "false" are never quoted.
func (c *Context) Register(name, value string, quote bool) {
	c.args = append(c.args, formatArg(name, value, quote))
	if name == TargetArg && value != "" {
		c.Targets = append(c.Targets, value)
		c.PackagingRequired = false
	}
}

// RegisterList appends a list argument, its values joined with "&&".
func (c *Context) RegisterList(name string, values []string, quote bool) {
	c.args = append(c.args, formatArg(name, strings.Join(values, "&&"), quote))
	if name == TargetArg && len(values) > 0 {
		c.Targets = append(c.Targets, values...)
		c.PackagingRequired = false
	}
}

// AddRaw appends pre-formatted gn argument tokens, such as product features.
func (c *Context) AddRaw(tokens ...string) {
	c.args = append(c.args, tokens...)
}

// Args returns the registered tokens in registration order.
func (c *Context) Args() []string {
	return append([]string(nil), c.args...)
}

// ArgsString joins the tokens with single spaces, as passed to gn --args.
func (c *Context) ArgsString() string {
	return strings.Join(c.args, " ")
}

// LogPath is the build log inside the output directory.
func (c *Context) LogPath() string {
	return filepath.Join(c.OutPath, LogFileName)
}

func formatArg(name, value string, quote bool) string {
	if value == "true" || value == "false" {
		quote = false
	}
	if quote {
		return fmt.Sprintf("%s=\"%s\"", name, value)
	}
	return fmt.Sprintf("%s=%s", name, value)
}
