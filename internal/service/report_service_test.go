package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-reports/internal/model"
)

func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }

type fakeStore struct {
	report   *model.DeliveryReport
	user     *model.User
	location *model.Location

	savedExcel, savedPDF string
}

func (s *fakeStore) GetReport(_ context.Context, id uint) (*model.DeliveryReport, error) {
	if s.report == nil || s.report.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.report, nil
}

func (s *fakeStore) GetUser(_ context.Context, id uint) (*model.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *fakeStore) GetLocation(_ context.Context, id uint) (*model.Location, error) {
	if s.location == nil || s.location.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.location, nil
}

func (s *fakeStore) UpdateReportFiles(_ context.Context, _ uint, excelKey, pdfKey string) error {
	s.savedExcel, s.savedPDF = excelKey, pdfKey
	return nil
}

type captureRenderer struct {
	payload *model.ReportPayload
	key     string
	err     error
}

func (r *captureRenderer) Render(_ context.Context, p *model.ReportPayload, excelKey string) error {
	r.payload, r.key = p, excelKey
	return r.err
}

type fakeConverter struct {
	key string
	err error
}

func (c *fakeConverter) Convert(_ context.Context, _ string) (string, error) {
	return c.key, c.err
}

func sampleReport() *model.DeliveryReport {
	return &model.DeliveryReport{
		ID:                 7,
		UserID:             uintPtr(3),
		LocationID:         uintPtr(5),
		Supplier:           "ACME",
		DeliverySlipNumber: "DS-9",
		LoadSecuredStatus:  boolPtr(true),
		LoadSecuredComment: "ok",
		Items: []model.DeliveryReportItem{
			{Position: 1, Name: "Tiles", Quantity: 4},
			{Position: 2, Name: "Cement", Quantity: 12},
		},
		Images: []model.DeliveryReportImage{
			{Kind: model.ImageKindDamage, URL: "https://img/d1.jpg"},
			{Kind: model.ImageKindDeliverySlip, URL: "https://img/s1.jpg"},
			{Kind: model.ImageKindDeliverySlip, URL: ""},
			{Kind: model.ImageKindGoodsSealContainer, URL: "https://img/g1.jpg"},
		},
	}
}

func newService(store *fakeStore, renderer *captureRenderer, converter *fakeConverter) *ReportService {
	s := NewReportService(store, renderer, converter, "delivery_reports_excel", zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestGenerateReportFiles(t *testing.T) {
	store := &fakeStore{
		report:   sampleReport(),
		user:     &model.User{ID: 3, Username: "jinspector", FirstName: "Jane", LastName: "Inspector", SignatureURL: "https://img/sig.png"},
		location: &model.Location{ID: 5, Name: "Depot North", ClientName: "ACME GmbH", LogoURL: "https://img/logo.png"},
	}
	renderer := &captureRenderer{}
	converter := &fakeConverter{key: "delivery_reports_pdf/delivery_report_20240501_120000.pdf"}

	svc := newService(store, renderer, converter)
	require.NoError(t, svc.GenerateReportFiles(context.Background(), 7))

	assert.Equal(t, "delivery_reports_excel/delivery_report_20240501_120000.xlsx", renderer.key)
	assert.Equal(t, renderer.key, store.savedExcel)
	assert.Equal(t, converter.key, store.savedPDF)

	p := renderer.payload
	require.NotNil(t, p)
	assert.Equal(t, "Jane Inspector", p.UserDisplayName)
	assert.Equal(t, "https://img/sig.png", p.UserSignatureURL)
	assert.Equal(t, "Depot North", p.Location)
	assert.Equal(t, "ACME GmbH", p.ClientName)
	assert.Equal(t, []model.ReportItem{{Name: "Tiles", Quantity: 4}, {Name: "Cement", Quantity: 12}}, p.Items)
	assert.Equal(t, []string{"https://img/s1.jpg"}, p.DeliverySlipImageURLs, "empty URLs are filtered")
	assert.Equal(t, []string{"https://img/g1.jpg"}, p.GoodsSealProofURLs)
	require.NotNil(t, p.Checklist[model.ChecklistLoadSecured].Status)
	assert.True(t, *p.Checklist[model.ChecklistLoadSecured].Status)
	assert.Nil(t, p.Checklist[model.ChecklistPackaging].Status, "unset flag stays tri-state nil")
}

func TestGenerateReportFilesNotFound(t *testing.T) {
	svc := newService(&fakeStore{}, &captureRenderer{}, &fakeConverter{})
	err := svc.GenerateReportFiles(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateReportFilesConverterFailure(t *testing.T) {
	store := &fakeStore{report: sampleReport()}
	svc := newService(store, &captureRenderer{}, &fakeConverter{err: errors.New("libreoffice exploded")})

	err := svc.GenerateReportFiles(context.Background(), 7)
	require.Error(t, err)
	assert.Empty(t, store.savedExcel, "file keys are not persisted on failure")
}

func TestPrepareFallbacks(t *testing.T) {
	report := sampleReport()
	report.UserID = uintPtr(42)     // no such user
	report.LocationID = uintPtr(42) // no such location

	renderer := &captureRenderer{}
	svc := newService(&fakeStore{report: report}, renderer, &fakeConverter{})
	require.NoError(t, svc.GenerateReportFiles(context.Background(), 7))

	p := renderer.payload
	assert.Equal(t, "Unknown User", p.UserDisplayName)
	assert.Empty(t, p.UserSignatureURL)
	assert.Empty(t, p.Location)
	assert.Empty(t, p.ClientLogoURL)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", displayName(&model.User{FirstName: "Jane", LastName: "Doe", Username: "jd"}))
	assert.Equal(t, "Jane", displayName(&model.User{FirstName: "Jane"}))
	assert.Equal(t, "jd", displayName(&model.User{Username: "jd"}))
	assert.Equal(t, "Unknown User", displayName(&model.User{}))
}
