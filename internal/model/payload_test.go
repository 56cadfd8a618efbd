package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryCollageURLs(t *testing.T) {
	p := &ReportPayload{
		TruckPlateImageURL:   "https://img/truck.jpg",
		TrailerPlateImageURL: "",
		ProofOfDeliveryURL:   "https://img/proof.jpg",
	}
	assert.Equal(t, []string{"https://img/truck.jpg", "https://img/proof.jpg"}, p.PrimaryCollageURLs())

	empty := &ReportPayload{}
	assert.Empty(t, empty.PrimaryCollageURLs())
}

func TestHasDamages(t *testing.T) {
	assert.False(t, (&ReportPayload{}).HasDamages())
	assert.True(t, (&ReportPayload{DamageDescription: "dent"}).HasDamages())
	assert.True(t, (&ReportPayload{DamageImageURLs: []string{"https://img/d.jpg"}}).HasDamages())
}

func TestImagesOfKind(t *testing.T) {
	report := &DeliveryReport{
		Images: []DeliveryReportImage{
			{Kind: ImageKindDamage, URL: "first"},
			{Kind: ImageKindAdditional, URL: "other"},
			{Kind: ImageKindDamage, URL: ""},
			{Kind: ImageKindDamage, URL: "second"},
		},
	}
	assert.Equal(t, []string{"first", "second"}, report.ImagesOfKind(ImageKindDamage))
	assert.Empty(t, report.ImagesOfKind(ImageKindDeliverySlip))
}

func TestChecklistOrderCoversAllFields(t *testing.T) {
	assert.Len(t, ChecklistOrder, 7)
	seen := map[string]bool{}
	for _, name := range ChecklistOrder {
		assert.False(t, seen[name], "duplicate checklist field %s", name)
		seen[name] = true
	}
}
