package database

const createReportsTable = `
	CREATE TABLE IF NOT EXISTS reports (
		id BIGINT NOT NULL AUTO_INCREMENT,
		nama VARCHAR(255) NOT NULL,
		nomor_hp VARCHAR(32) NOT NULL,
		email VARCHAR(255),
		lokasi_puskesmas VARCHAR(255),
		jenis_kelamin ENUM('pria', 'wanita'),
		deskripsi TEXT,
		tanggal VARCHAR(32),
		unggah_gambar_luka VARCHAR(512),
		wound_score TINYINT UNSIGNED,
		bukti_pendukung VARCHAR(512) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX idx_reports_created_at (created_at),
		CONSTRAINT chk_reports_wound_score CHECK (wound_score IS NULL OR wound_score <= 100)
	)`

const insertReport = `
	INSERT INTO reports (
		nama, nomor_hp, email, lokasi_puskesmas, jenis_kelamin, deskripsi,
		tanggal, unggah_gambar_luka, wound_score, bukti_pendukung
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectReport = `
	SELECT id, nama, nomor_hp, email, lokasi_puskesmas, jenis_kelamin, deskripsi,
		tanggal, unggah_gambar_luka, wound_score, bukti_pendukung, created_at
	FROM reports
	WHERE id = ?`
