package core

import "regexp"

// placeholderPattern matches {axisname} references in a command template.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_-]*)\}`)

// Expand computes the cross-product of axes and resolves the command
// template for each cell.
//
// Ordering convention: the last declared axis varies fastest, so for
// toolchain=[stable,nightly], platform=[linux,windows] the order is
// (stable,linux), (stable,windows), (nightly,linux), (nightly,windows).
// The convention is fixed so job ordering in reports is reproducible.
//
// An empty axis list yields exactly one JobSpec running the template
// untouched. An axis with no values, a duplicate axis name, or a template
// placeholder naming an undeclared axis is a ConfigurationError.
func Expand(axes []Axis, template string) ([]JobSpec, error) {
	declared := make(map[string]bool, len(axes))
	for _, a := range axes {
		if a.Name == "" {
			return nil, configErrorf("axis with empty name")
		}
		if declared[a.Name] {
			return nil, configErrorf("axis %q declared twice", a.Name)
		}
		if len(a.Values) == 0 {
			return nil, configErrorf("axis %q has no values", a.Name)
		}
		declared[a.Name] = true
	}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !declared[m[1]] {
			return nil, configErrorf("command template references undeclared axis %q", m[1])
		}
	}

	total := 1
	for _, a := range axes {
		total *= len(a.Values)
	}

	specs := make([]JobSpec, 0, total)
	odometer := make([]int, len(axes))
	for i := 0; i < total; i++ {
		values := make(map[string]string, len(axes))
		tuple := make([]string, len(axes))
		for k, a := range axes {
			values[a.Name] = a.Values[odometer[k]]
			tuple[k] = a.Values[odometer[k]]
		}
		specs = append(specs, JobSpec{
			Index:   i,
			Values:  values,
			Tuple:   tuple,
			Command: resolveTemplate(template, values),
		})

		// advance, last axis fastest
		for k := len(axes) - 1; k >= 0; k-- {
			odometer[k]++
			if odometer[k] < len(axes[k].Values) {
				break
			}
			odometer[k] = 0
		}
	}
	return specs, nil
}

func resolveTemplate(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(ph string) string {
		return values[ph[1:len(ph)-1]]
	})
}
