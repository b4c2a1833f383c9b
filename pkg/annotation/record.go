// Package annotation reads per-slice polygon annotation records.
//
// A record is a JSON document of the form
//
//	{"objects": [{"segmentation": [[x, y], ...], ...}, ...]}
//
// Only objects[].segmentation is read; every other field is ignored.
package annotation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"niftibridge/internal/models"
	"niftibridge/pkg/rasterize"
)

// recordSchema constrains only the fields the importer consumes.
const recordSchema = `{
	"type": "object",
	"required": ["objects"],
	"properties": {
		"objects": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["segmentation"],
				"properties": {
					"segmentation": {
						"type": "array",
						"items": {
							"type": "array",
							"minItems": 2,
							"maxItems": 2,
							"items": {"type": "number"}
						}
					}
				}
			}
		}
	}
}`

var schema = jsonschema.MustCompileString("annotation.json", recordSchema)

// Object is a single annotated polygon.
type Object struct {
	Segmentation [][2]float64 `json:"segmentation"`
}

// Points returns the outline as rasterizer points.
func (o Object) Points() []rasterize.Point {
	pts := make([]rasterize.Point, len(o.Segmentation))
	for i, p := range o.Segmentation {
		pts[i] = rasterize.Point{X: p[0], Y: p[1]}
	}
	return pts
}

// Record is the content of one annotation file.
type Record struct {
	Objects []Object `json:"objects"`
}

// Parse validates and decodes an annotation record.
func Parse(data []byte) (*Record, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", models.ErrMalformedAnnotation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedAnnotation, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedAnnotation, err)
	}
	return &rec, nil
}

// Load reads and parses an annotation file.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
