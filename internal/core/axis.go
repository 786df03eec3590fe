package core

// Axis is one named dimension of the build matrix, e.g. toolchain or
// platform. Values are ordered and must be non-empty.
type Axis struct {
	Name   string   `yaml:"name" json:"name" validate:"required"`
	Values []string `yaml:"values" json:"values" validate:"required,min=1"`
}
