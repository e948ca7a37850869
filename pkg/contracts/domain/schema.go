package domain

// Field identifies a canonical campaign attribute independent of the header
// a given schema uses for it.
type Field string

const (
	FieldDate           Field = "date"
	FieldInfluencer     Field = "influencer"
	FieldBrand          Field = "brand"
	FieldPlatform       Field = "platform"
	FieldProduct        Field = "product"
	FieldInfluencerType Field = "influencer_type"
	FieldReach          Field = "reach"
	FieldEngagement     Field = "engagement"
	FieldOrders         Field = "orders"
	FieldPostCount      Field = "post_count"
	FieldSpend          Field = "spend"
	FieldRevenue        Field = "revenue"
	FieldROI            Field = "roi"
)

// AllFields lists every canonical field in display order.
var AllFields = []Field{
	FieldDate, FieldInfluencer, FieldBrand, FieldPlatform, FieldProduct,
	FieldInfluencerType, FieldReach, FieldEngagement, FieldOrders,
	FieldPostCount, FieldSpend, FieldRevenue, FieldROI,
}

// Schema names the required headers of an accepted upload and binds each
// canonical field to the header that carries it.
type Schema struct {
	Name     string           `json:"name" yaml:"name" validate:"required"`
	Required []string         `json:"required" yaml:"required" validate:"required,min=1"`
	Columns  map[Field]string `json:"columns" yaml:"columns"`
}

// Column returns the header bound to f, or "".
func (s Schema) Column(f Field) string {
	return s.Columns[f]
}

// SchemaDescriptor travels with a validated dataset and records which
// canonical fields were actually present in the upload.
type SchemaDescriptor struct {
	Name    string           `json:"name"`
	Columns map[Field]string `json:"columns"`
	Present map[Field]bool   `json:"present"`
}

// Has reports whether f was present in the merged upload.
func (d SchemaDescriptor) Has(f Field) bool {
	return d.Present[f]
}

// Column returns the header bound to f, or "".
func (d SchemaDescriptor) Column(f Field) string {
	return d.Columns[f]
}
