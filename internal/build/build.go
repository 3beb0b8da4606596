// Package build drives the project's Maven or Gradle build: compiling it and
// copying its library dependencies so their classes can be used for type
// resolution.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	cerrors "github.com/mvp-joe/codeanalyzer/internal/errors"
)

// Tool is a supported build tool.
type Tool string

const (
	Maven  Tool = "maven"
	Gradle Tool = "gradle"
	None   Tool = ""
)

// LibraryDir is the directory, under target/ or build/, dependencies are copied to.
const LibraryDir = "_library_dependencies"

// ErrToolNotFound is returned when neither a wrapper nor a system install of
// the build tool can be run.
var ErrToolNotFound = errors.New("build tool not found")

// ErrNoBuildFile is returned when the project has neither pom.xml nor a Gradle build file.
var ErrNoBuildFile = errors.New("no pom.xml or build.gradle found")

// Runner runs one external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Project is a buildable project directory.
type Project struct {
	root     string
	tool     Tool
	custom   string
	depDir   string
	keepDeps bool
	runner   Runner
	lookPath func(file string) (string, error)
	logger   *logrus.Logger

	command string // Resolved tool executable
	created bool   // depDir was created by DownloadDependencies
}

// Option configures a Project.
type Option func(*Project)

// WithTool forces a tool instead of detecting it. "auto" and "" detect.
func WithTool(name string) Option {
	return func(p *Project) {
		switch strings.ToLower(name) {
		case "maven":
			p.tool = Maven
		case "gradle":
			p.tool = Gradle
		}
	}
}

// WithBuildCommand replaces the compile step with a custom command line.
func WithBuildCommand(command string) Option {
	return func(p *Project) { p.custom = command }
}

// WithDependencyDir sets where dependencies are copied.
func WithDependencyDir(dir string) Option {
	return func(p *Project) { p.depDir = dir }
}

// WithKeepDependencies makes Clean leave the dependency directory in place.
func WithKeepDependencies(keep bool) Option {
	return func(p *Project) { p.keepDeps = keep }
}

// WithRunner sets how commands are executed.
func WithRunner(r Runner) Option {
	return func(p *Project) { p.runner = r }
}

// WithLookPath sets how system installs of the tools are found.
func WithLookPath(lookPath func(file string) (string, error)) Option {
	return func(p *Project) { p.lookPath = lookPath }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Project) { p.logger = logger }
}

// New creates a project rooted at root, detecting its build tool unless one
// is forced.
func New(root string, opts ...Option) *Project {
	p := &Project{
		root:     root,
		tool:     Detect(root),
		runner:   execRunner{},
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logrus.New()
	}
	if p.depDir == "" {
		switch p.tool {
		case Maven:
			p.depDir = filepath.Join(root, "target", LibraryDir)
		case Gradle:
			p.depDir = filepath.Join(root, "build", LibraryDir)
		}
	}
	return p
}

// Detect reports the build tool of a project from its build files.
func Detect(root string) Tool {
	if exists(filepath.Join(root, "pom.xml")) {
		return Maven
	}
	if exists(filepath.Join(root, "build.gradle")) || exists(filepath.Join(root, "build.gradle.kts")) {
		return Gradle
	}
	return None
}

// Tool returns the project's build tool.
func (p *Project) Tool() Tool {
	return p.tool
}

// DependencyDir returns where dependencies are copied.
func (p *Project) DependencyDir() string {
	return p.depDir
}

// Compile builds the project with its tool, or with the custom command.
func (p *Project) Compile(ctx context.Context) error {
	if p.custom != "" {
		fields := strings.Fields(p.custom)
		if len(fields) == 0 {
			return cerrors.BuildError(fmt.Errorf("empty build command"), "build failed")
		}
		return p.run(ctx, fields[0], fields[1:]...)
	}

	cmd, err := p.resolve(ctx)
	if err != nil {
		return err
	}
	switch p.tool {
	case Maven:
		return p.run(ctx, cmd, append([]string{"compile", "-f", filepath.Join(p.root, "pom.xml"), "-B", "-V", "-e"}, mavenSkips...)...)
	case Gradle:
		return p.run(ctx, cmd, "compileJava", "-p", p.root)
	}
	return cerrors.BuildError(ErrNoBuildFile, "build failed")
}

// mavenSkips turns off plugins that do not contribute to compilation.
var mavenSkips = []string{
	"-Drat.skip=true",
	"-Dfindbugs.skip",
	"-Dcheckstyle.skip",
	"-Dpmd.skip=true",
	"-Dspotbugs.skip",
	"-Denforcer.skip",
	"-Dmaven.javadoc.skip",
	"-DskipTests",
	"-Dmaven.test.skip.exec",
	"-Dlicense.skip=true",
	"-Dspotless.check.skip=true",
}

// gradleInitScript adds a downloadDependencies task copying every resolvable
// configuration into -PoutputDir.
const gradleInitScript = `allprojects {
    afterEvaluate { project ->
        task downloadDependencies(type: Copy) {
            def configs = project.configurations.findAll { it.canBeResolved }
            dependsOn configs
            from configs
            into project.hasProperty('outputDir') ? project.property('outputDir') : "${project.buildDir}/libs"
            eachFile { fileCopyDetails -> fileCopyDetails.file.setWritable(true) }
        }
    }
}
`

// DownloadDependencies copies the project's library jars into the dependency
// directory and returns it.
func (p *Project) DownloadDependencies(ctx context.Context) (string, error) {
	if p.tool == None {
		return "", cerrors.BuildError(ErrNoBuildFile, "failed to download dependencies")
	}
	cmd, err := p.resolve(ctx)
	if err != nil {
		return "", err
	}

	if !exists(p.depDir) {
		p.created = true
	}
	if err := os.MkdirAll(p.depDir, 0o755); err != nil {
		return "", cerrors.BuildError(err, "failed to create dependency directory")
	}

	switch p.tool {
	case Maven:
		err = p.run(ctx, cmd,
			"--no-transfer-progress",
			"-f", filepath.Join(p.root, "pom.xml"),
			"dependency:copy-dependencies",
			"-DoutputDirectory="+p.depDir,
			"-Doverwrite=true",
			"--fail-never",
		)
	case Gradle:
		err = p.gradleDownload(ctx, cmd)
	}
	if err != nil {
		return "", err
	}
	return p.depDir, nil
}

func (p *Project) gradleDownload(ctx context.Context, cmd string) error {
	script, err := os.CreateTemp("", "gradle-init-*.gradle")
	if err != nil {
		return cerrors.BuildError(err, "failed to create gradle init script")
	}
	defer os.Remove(script.Name())

	if _, err := script.WriteString(gradleInitScript); err != nil {
		script.Close()
		return cerrors.BuildError(err, "failed to write gradle init script")
	}
	if err := script.Close(); err != nil {
		return cerrors.BuildError(err, "failed to write gradle init script")
	}
	return p.run(ctx, cmd, "--init-script", script.Name(), "downloadDependencies", "-PoutputDir="+p.depDir, "-p", p.root)
}

// Clean removes the dependency directory if DownloadDependencies created it,
// unless dependencies are kept.
func (p *Project) Clean() error {
	if p.keepDeps || !p.created {
		return nil
	}
	p.logger.WithField("dir", p.depDir).Info("removing library dependencies")
	if err := os.RemoveAll(p.depDir); err != nil {
		return cerrors.BuildError(err, "failed to remove dependency directory")
	}
	p.created = false
	return nil
}

// Prepare compiles the project unless skipped and collects its library jars.
// Build failures are logged and yield an empty classpath.
func (p *Project) Prepare(ctx context.Context, compile bool) []string {
	if p.tool == None && p.custom == "" {
		p.logger.WithField("root", p.root).Warn("no build file found, continuing without library dependencies")
		return nil
	}
	if compile {
		if err := p.Compile(ctx); err != nil {
			p.logger.WithError(err).Warn("project build failed, continuing")
		}
	}
	if p.tool == None {
		return nil
	}

	dir, err := p.DownloadDependencies(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("failed to download library dependencies, continuing with an empty classpath")
		return nil
	}
	jars, err := ClasspathJars(dir)
	if err != nil {
		p.logger.WithError(err).Warn("failed to list library dependencies")
		return nil
	}
	p.logger.WithField("jars", len(jars)).Debug("library dependencies ready")
	return jars
}

// resolve finds the tool executable: the project's wrapper when it runs,
// otherwise the system install.
func (p *Project) resolve(ctx context.Context) (string, error) {
	if p.command != "" {
		return p.command, nil
	}

	var wrapper, system string
	switch p.tool {
	case Maven:
		wrapper, system = "mvnw", "mvn"
	case Gradle:
		wrapper, system = "gradlew", "gradle"
	default:
		return "", cerrors.BuildError(ErrNoBuildFile, "no build tool")
	}

	if path := filepath.Join(p.root, wrapper); exists(path) {
		out, err := p.runner.Run(ctx, p.root, path, "--version")
		if err == nil {
			p.command = path
			return path, nil
		}
		p.logger.WithField("wrapper", path).WithError(err).Warnf("wrapper unusable, trying %s: %s", system, strings.TrimSpace(string(out)))
	}

	path, err := p.lookPath(system)
	if err != nil {
		return "", cerrors.BuildError(fmt.Errorf("%w: %s", ErrToolNotFound, system), "no build tool")
	}
	p.command = path
	return path, nil
}

func (p *Project) run(ctx context.Context, name string, args ...string) error {
	p.logger.WithField("command", name).WithField("args", strings.Join(args, " ")).Info("running build tool")
	out, err := p.runner.Run(ctx, p.root, name, args...)
	if err != nil {
		p.logger.WithField("command", name).Debug(string(out))
		return cerrors.BuildError(fmt.Errorf("%s: %w", filepath.Base(name), err), "build command failed")
	}
	return nil
}

// ClasspathJars lists the jars directly inside dir, sorted.
func ClasspathJars(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var jars []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jar") {
			jars = append(jars, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(jars)
	return jars, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
