package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(150) NOT NULL,
		client_name VARCHAR(512),
		logo_url VARCHAR(1024)
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL,
		first_name VARCHAR(150),
		last_name VARCHAR(150),
		signature_url VARCHAR(1024)
	);`,
	`CREATE TABLE IF NOT EXISTS delivery_reports (
		id BIGSERIAL PRIMARY KEY,
		location_id BIGINT REFERENCES locations(id),
		user_id BIGINT REFERENCES users(id),
		supplier VARCHAR(255),
		checking_company VARCHAR(255),
		delivery_slip_number VARCHAR(128),
		logistic_company VARCHAR(255),
		container_number VARCHAR(128),
		licence_plate_truck VARCHAR(64),
		licence_plate_trailer VARCHAR(64),
		weather_conditions VARCHAR(255),
		comments TEXT,
		load_secured_status BOOLEAN,
		load_secured_comment TEXT,
		delivery_without_damages_status BOOLEAN,
		delivery_without_damages_comment TEXT,
		packaging_status BOOLEAN,
		packaging_comment TEXT,
		goods_according_status BOOLEAN,
		goods_according_comment TEXT,
		suitable_machines_status BOOLEAN,
		suitable_machines_comment TEXT,
		delivery_slip_status BOOLEAN,
		delivery_slip_comment TEXT,
		inspection_report_status BOOLEAN,
		inspection_report_comment TEXT,
		truck_license_plate_image VARCHAR(1024),
		trailer_license_plate_image VARCHAR(1024),
		proof_of_delivery_image VARCHAR(1024),
		cmr_image VARCHAR(1024),
		damage_description TEXT,
		excel_report_file VARCHAR(1024),
		pdf_report_file VARCHAR(1024),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'delivery_reports' AND column_name = 'checking_company') THEN
			ALTER TABLE delivery_reports ADD COLUMN checking_company VARCHAR(255);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'delivery_reports' AND column_name = 'excel_report_file') THEN
			ALTER TABLE delivery_reports ADD COLUMN excel_report_file VARCHAR(1024);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'delivery_reports' AND column_name = 'pdf_report_file') THEN
			ALTER TABLE delivery_reports ADD COLUMN pdf_report_file VARCHAR(1024);
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS delivery_report_items (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL REFERENCES delivery_reports(id) ON DELETE CASCADE,
		position INT NOT NULL DEFAULT 0,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS delivery_report_images (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL REFERENCES delivery_reports(id) ON DELETE CASCADE,
		kind VARCHAR(32) NOT NULL,
		url VARCHAR(1024) NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_reports_location_id ON delivery_reports (location_id);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_reports_user_id ON delivery_reports (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_report_items_report_id ON delivery_report_items (report_id);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_report_images_report_id ON delivery_report_images (report_id);`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_report_images_kind ON delivery_report_images (report_id, kind);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
