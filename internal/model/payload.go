package model

// ReportItem is one row of the item table.
type ReportItem struct {
	Name     string
	Quantity int
}

// ChecklistEntry is a tri-state inspection flag: true = yes, false = no,
// nil = not applicable. Each state renders into its own glyph column.
type ChecklistEntry struct {
	Status  *bool
	Comment string
}

// Checklist field names, in template row order.
const (
	ChecklistLoadSecured            = "load_secured"
	ChecklistDeliveryWithoutDamages = "delivery_without_damages"
	ChecklistPackaging              = "packaging"
	ChecklistGoodsAccording         = "goods_according"
	ChecklistSuitableMachines       = "suitable_machines"
	ChecklistDeliverySlip           = "delivery_slip"
	ChecklistInspectionReport       = "inspection_report"
)

// ChecklistOrder fixes the rendering order of the 7 checklist rows.
var ChecklistOrder = []string{
	ChecklistLoadSecured,
	ChecklistDeliveryWithoutDamages,
	ChecklistPackaging,
	ChecklistGoodsAccording,
	ChecklistSuitableMachines,
	ChecklistDeliverySlip,
	ChecklistInspectionReport,
}

// ReportPayload is the flat denormalized form the layout engine consumes.
// It is produced by the data preparer and never persisted.
type ReportPayload struct {
	Location            string
	ClientLogoURL       string
	ClientName          string
	Supplier            string
	DeliverySlipNumber  string
	LogisticCompany     string
	ContainerNumber     string
	LicencePlateTruck   string
	LicencePlateTrailer string
	WeatherConditions   string
	Comments            string

	Items     []ReportItem
	Checklist map[string]ChecklistEntry

	TruckPlateImageURL   string
	TrailerPlateImageURL string
	ProofOfDeliveryURL   string
	CMRImageURL          string

	DeliverySlipImageURLs []string
	AdditionalImageURLs   []string
	DamageImageURLs       []string
	GoodsSealProofURLs    []string

	DamageDescription string

	UserDisplayName  string
	UserSignatureURL string
}

// HasDamages reports whether the damages sub-table should be rendered at all.
func (p *ReportPayload) HasDamages() bool {
	return p.DamageDescription != "" || len(p.DamageImageURLs) > 0
}

// PrimaryCollageURLs is the photo set of the in-sheet collage region, in
// fixed order: truck plate, trailer plate, proof of delivery. Empty refs are
// dropped so a missing photo does not claim a collage slot.
func (p *ReportPayload) PrimaryCollageURLs() []string {
	var urls []string
	for _, u := range []string{p.TruckPlateImageURL, p.TrailerPlateImageURL, p.ProofOfDeliveryURL} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
