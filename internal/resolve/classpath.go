package resolve

import (
	"archive/zip"
	"fmt"
	"strings"
)

// JarClasses lists the top-level and member class names contained in a jar.
// Anonymous and local classes, module-info and package-info are skipped.
func JarClasses(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", path, err)
	}
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		name, ok := strings.CutSuffix(f.Name, ".class")
		if !ok || strings.HasPrefix(name, "META-INF/") {
			continue
		}
		base := name[strings.LastIndex(name, "/")+1:]
		if base == "module-info" || base == "package-info" || anonymous(base) {
			continue
		}
		names = append(names, strings.NewReplacer("/", ".", "$", ".").Replace(name))
	}
	return names, nil
}

// LoadClasspath adds the classes of every jar to the index. Unreadable jars
// are reported but do not stop the others from loading.
func (idx *Index) LoadClasspath(jars []string) error {
	var failed []string
	for _, jar := range jars {
		names, err := JarClasses(jar)
		if err != nil {
			failed = append(failed, jar)
			continue
		}
		idx.AddClasspath(names...)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to read %d jar(s): %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// anonymous reports whether a class file name belongs to an anonymous or
// local class, whose binary names carry a numeric segment after '$'.
func anonymous(base string) bool {
	for _, part := range strings.Split(base, "$")[1:] {
		if part != "" && part[0] >= '0' && part[0] <= '9' {
			return true
		}
	}
	return false
}
