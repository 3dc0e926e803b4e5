package export

import (
	"bytes"
	"fmt"
	"io"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// Descriptor is the machine-readable summary written to dataset.yaml.
type Descriptor struct {
	Format   string           `yaml:"format"`
	Samples  int              `yaml:"samples"`
	Metadata string           `yaml:"metadata"`
	Images   string           `yaml:"images"`
	Start    string           `yaml:"start,omitempty"`
	End      string           `yaml:"end,omitempty"`
	Columns  []string         `yaml:"columns"`
	Cameras  []CameraCoverage `yaml:"cameras"`
	Sensors  []string         `yaml:"sensors"`
	Options  DescriptorOpts   `yaml:"options"`
}

// CameraCoverage counts the frames exported for one camera.
type CameraCoverage struct {
	Name     string `yaml:"name"`
	Column   string `yaml:"column"`
	Exported int    `yaml:"exported"`
	Missing  int    `yaml:"missing"`
}

// DescriptorOpts records the image options an export ran with.
type DescriptorOpts struct {
	MaxImageWidth int `yaml:"max_image_width"`
	JPEGQuality   int `yaml:"jpeg_quality"`
}

// Coverage returns the share of samples that have a frame, in percent.
func (c CameraCoverage) Coverage() float64 {
	total := c.Exported + c.Missing
	if total == 0 {
		return 0
	}
	return float64(c.Exported) * 100 / float64(total)
}

func (r *Result) descriptor(opts Options) Descriptor {
	d := Descriptor{
		Format:   "smartfarm-dataset/v1",
		Samples:  len(r.Table.Rows),
		Metadata: MetadataFileName,
		Images:   ImagesDirName + "/",
		Columns:  r.Table.Columns(),
		Cameras:  make([]CameraCoverage, 0, len(r.Table.Cameras())),
		Sensors:  r.Table.Channels(),
		Options:  DescriptorOpts{MaxImageWidth: opts.MaxImageWidth, JPEGQuality: opts.JPEGQuality},
	}
	if n := len(r.Table.Rows); n > 0 {
		d.Start = r.Table.Rows[0].Timestamp.String()
		d.End = r.Table.Rows[n-1].Timestamp.String()
	}
	for _, camera := range r.Table.Cameras() {
		cov := CameraCoverage{Name: camera, Column: ImageColumn(camera)}
		for _, row := range r.Table.Rows {
			if _, ok := row.Images[camera]; ok {
				cov.Exported++
			} else {
				cov.Missing++
			}
		}
		d.Cameras = append(d.Cameras, cov)
	}
	if d.Sensors == nil {
		d.Sensors = []string{}
	}
	return d
}

// WriteYAML encodes d with two-space indentation.
func (d Descriptor) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// ReadDescriptor decodes a dataset.yaml document.
func ReadDescriptor(r io.Reader) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	return &d, nil
}

var cardTemplate = template.Must(template.New("card").Funcs(template.FuncMap{
	"pct":   func(c CameraCoverage) string { return humanize.FtoaWithDigits(c.Coverage(), 1) + "%" },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
}).Parse(`# Smart farm capture dataset

{{comma .Samples}} samples{{if .Start}} captured between {{.Start}} and {{.End}}{{end}}.

Rows live in ` + "`{{.Metadata}}`" + `; frames live in ` + "`{{.Images}}`" + `.

## Cameras

{{if .Cameras}}| Camera | Column | Exported | Missing | Coverage |
|---|---|---:|---:|---:|
{{range .Cameras}}| {{.Name}} | ` + "`{{.Column}}`" + ` | {{.Exported}} | {{.Missing}} | {{pct .}} |
{{end}}{{else}}No camera frames were referenced.
{{end}}
## Sensor channels

{{range .Sensors}}- ` + "`{{.}}`" + `
{{else}}No sensor payloads were present.
{{end}}`))

// WriteCard renders the README.md dataset card for d.
func (d Descriptor) WriteCard(w io.Writer) error {
	return cardTemplate.Execute(w, d)
}

var cardMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderCardHTML converts a dataset card from markdown to HTML.
func RenderCardHTML(card []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := cardMarkdown.Convert(card, &buf); err != nil {
		return nil, fmt.Errorf("convert card: %w", err)
	}
	return buf.Bytes(), nil
}
