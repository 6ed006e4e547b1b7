package models

// Mark is the graphical primitive of a chart.
type Mark string

const (
	MarkBar     Mark = "bar"
	MarkCircle  Mark = "circle"
	MarkBoxplot Mark = "boxplot"
	MarkArc     Mark = "arc"
	MarkText    Mark = "text"
	MarkImage   Mark = "image"
)

// Channel is a visual channel a field is encoded on.
type Channel string

const (
	ChannelX       Channel = "x"
	ChannelX2      Channel = "x2"
	ChannelY       Channel = "y"
	ChannelColor   Channel = "color"
	ChannelSize    Channel = "size"
	ChannelOpacity Channel = "opacity"
	ChannelTheta   Channel = "theta"
	ChannelText    Channel = "text"
	ChannelTooltip Channel = "tooltip"
	ChannelURL     Channel = "url"
)

// FieldType is the measurement type of an encoded field.
type FieldType string

const (
	Quantitative FieldType = "quantitative"
	Nominal      FieldType = "nominal"
	Ordinal      FieldType = "ordinal"
)

// AggregateOp names an aggregation the renderer should apply to raw rows.
type AggregateOp string

const (
	AggregateNone    AggregateOp = ""
	AggregateCount   AggregateOp = "count"
	AggregateBoxplot AggregateOp = "boxplot"
)

// Scale maps data values to visual values.
type Scale struct {
	Domain []string  `json:"domain,omitempty"`
	Range  []string  `json:"range,omitempty"`
	Extent []float64 `json:"extent,omitempty"`
}

// Bin describes equal-width binning already applied to the data rows.
type Bin struct {
	MaxBins int     `json:"maxbins"`
	Start   float64 `json:"start"`
	Step    float64 `json:"step"`
}

// Condition switches an encoding value on a selection parameter.
type Condition struct {
	Param     string `json:"param"`
	Value     any    `json:"value"`
	Otherwise any    `json:"otherwise"`
}

// Encoding binds a field (or a constant Value) to a channel.
type Encoding struct {
	Channel   Channel     `json:"channel"`
	Field     string      `json:"field,omitempty"`
	Type      FieldType   `json:"type,omitempty"`
	Title     string      `json:"title,omitempty"`
	Aggregate AggregateOp `json:"aggregate,omitempty"`
	Bin       *Bin        `json:"bin,omitempty"`
	Sort      string      `json:"sort,omitempty"`
	Scale     *Scale      `json:"scale,omitempty"`
	Format    string      `json:"format,omitempty"`
	Value     any         `json:"value,omitempty"`
	Condition *Condition  `json:"condition,omitempty"`
	NoLegend  bool        `json:"no_legend,omitempty"`
}

// Param is an interaction parameter: a point selection bound to the legend
// or an interval bound to axis scales.
type Param struct {
	Name     string    `json:"name"`
	Select   string    `json:"select"`
	Fields   []string  `json:"fields,omitempty"`
	Channels []Channel `json:"channels,omitempty"`
	Bind     string    `json:"bind,omitempty"`
}

// Row is one data record of a chart.
type Row map[string]any

// ChartSpec is a renderer-neutral, serializable description of a chart.
type ChartSpec struct {
	ID        string     `json:"id"`
	Mark      Mark       `json:"mark,omitempty"`
	Title     string     `json:"title,omitempty"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	Opacity   float64    `json:"opacity,omitempty"`
	Encodings []Encoding `json:"encodings"`
	Params    []Param    `json:"params,omitempty"`
	Data      []Row      `json:"data"`
	NoData    bool       `json:"no_data,omitempty"`
	Blank     bool       `json:"blank,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// NoDataMessage is shown in place of a chart with nothing to draw.
const NoDataMessage = "No data selected"

// NoDataChart is the placeholder spec every builder returns for an empty view.
func NoDataChart(id, message string) *ChartSpec {
	if message == "" {
		message = NoDataMessage
	}
	return &ChartSpec{
		ID:   id,
		Mark: MarkText,
		Encodings: []Encoding{
			{Channel: ChannelText, Value: message},
		},
		Data:    []Row{},
		NoData:  true,
		Message: message,
	}
}

// BlankChart is published while a filter control is unset.
func BlankChart(id string) *ChartSpec {
	return &ChartSpec{ID: id, Encodings: []Encoding{}, Data: []Row{}, Blank: true}
}

// Encoding returns the first encoding on channel, or nil.
func (c *ChartSpec) Encoding(ch Channel) *Encoding {
	for i := range c.Encodings {
		if c.Encodings[i].Channel == ch {
			return &c.Encodings[i]
		}
	}
	return nil
}
