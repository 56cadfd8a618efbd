package model

import "time"

// Image kinds for the list-valued photo groups attached to a report.
const (
	ImageKindDamage             = "DAMAGE"
	ImageKindDeliverySlip       = "DELIVERY_SLIP"
	ImageKindAdditional         = "ADDITIONAL"
	ImageKindGoodsSealContainer = "GOODS_SEAL_CONTAINER"
)

type Location struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"size:150"`
	ClientName string `gorm:"size:512"`
	LogoURL    string `gorm:"size:1024"`
}

func (Location) TableName() string { return "locations" }

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	SignatureURL string `gorm:"size:1024"`
}

func (User) TableName() string { return "users" }

// DeliveryReport is the persisted report record. The rendering pipeline never
// mutates it except to write the two generated file keys.
type DeliveryReport struct {
	ID         uint `gorm:"primaryKey"`
	LocationID *uint
	UserID     *uint

	Supplier            string
	CheckingCompany     string
	DeliverySlipNumber  string
	LogisticCompany     string
	ContainerNumber     string
	LicencePlateTruck   string
	LicencePlateTrailer string
	WeatherConditions   string
	Comments            string

	LoadSecuredStatus             *bool
	LoadSecuredComment            string
	DeliveryWithoutDamagesStatus  *bool
	DeliveryWithoutDamagesComment string
	PackagingStatus               *bool
	PackagingComment              string
	GoodsAccordingStatus          *bool
	GoodsAccordingComment         string
	SuitableMachinesStatus        *bool
	SuitableMachinesComment       string
	DeliverySlipStatus            *bool
	DeliverySlipComment           string
	InspectionReportStatus        *bool
	InspectionReportComment       string

	TruckLicensePlateImage   string `gorm:"size:1024"`
	TrailerLicensePlateImage string `gorm:"size:1024"`
	ProofOfDeliveryImage     string `gorm:"size:1024"`
	CMRImage                 string `gorm:"column:cmr_image;size:1024"`

	DamageDescription string

	ExcelReportFile string `gorm:"size:1024"`
	PDFReportFile   string `gorm:"column:pdf_report_file;size:1024"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items  []DeliveryReportItem  `gorm:"foreignKey:ReportID"`
	Images []DeliveryReportImage `gorm:"foreignKey:ReportID"`
}

func (DeliveryReport) TableName() string { return "delivery_reports" }

type DeliveryReportItem struct {
	ID       uint `gorm:"primaryKey"`
	ReportID uint
	Position int
	Name     string `gorm:"size:255"`
	Quantity int
}

func (DeliveryReportItem) TableName() string { return "delivery_report_items" }

type DeliveryReportImage struct {
	ID         uint `gorm:"primaryKey"`
	ReportID   uint
	Kind       string `gorm:"size:32"`
	URL        string `gorm:"size:1024"`
	UploadedAt time.Time
}

func (DeliveryReportImage) TableName() string { return "delivery_report_images" }

// ImagesOfKind returns the URLs of one photo group, preserving upload order.
func (r *DeliveryReport) ImagesOfKind(kind string) []string {
	var urls []string
	for _, img := range r.Images {
		if img.Kind == kind && img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	return urls
}
