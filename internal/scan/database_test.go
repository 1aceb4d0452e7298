package scan

import (
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltCache", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltCache
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltCache(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveAnalysis", func() {
		var analysis *Analysis

		BeforeEach(func() {
			analysis = &Analysis{
				Key:       "abc123",
				Document:  json.RawMessage(rawJSON),
				CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			}
		})

		It("stores the analysis for later retrieval", func() {
			Expect(db.SaveAnalysis(analysis)).To(Succeed())

			found, err := db.GetAnalysis("abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Key).To(Equal("abc123"))
			Expect([]byte(found.Document)).To(MatchJSON(rawJSON))
			Expect(found.CreatedAt.Equal(analysis.CreatedAt)).To(BeTrue())
		})

		It("overwrites an existing key", func() {
			Expect(db.SaveAnalysis(analysis)).To(Succeed())
			analysis.Document = json.RawMessage(`{"product_info": {}}`)
			Expect(db.SaveAnalysis(analysis)).To(Succeed())

			found, err := db.GetAnalysis("abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect([]byte(found.Document)).To(MatchJSON(`{"product_info": {}}`))
		})

		It("survives reopening the database", func() {
			Expect(db.SaveAnalysis(analysis)).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltCache(dbPath)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.GetAnalysis("abc123")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("GetAnalysis", func() {
		It("returns ErrAnalysisNotFound for unknown keys", func() {
			_, err := db.GetAnalysis("missing")
			Expect(err).To(MatchError(ErrAnalysisNotFound))
		})
	})

	Describe("DeleteAnalysis", func() {
		It("removes the analysis", func() {
			Expect(db.SaveAnalysis(&Analysis{Key: "gone", Document: json.RawMessage(`{}`)})).To(Succeed())
			Expect(db.DeleteAnalysis("gone")).To(Succeed())
			_, err := db.GetAnalysis("gone")
			Expect(err).To(MatchError(ErrAnalysisNotFound))
		})

		It("ignores unknown keys", func() {
			Expect(db.DeleteAnalysis("never-there")).To(Succeed())
		})
	})

	Describe("NewBoltCache", func() {
		It("fails for an unusable path", func() {
			_, err := NewBoltCache(filepath.Join(tmpDir, "missing", "dir", "test.db"))
			Expect(err).To(MatchError(ContainSubstring("opening boltdb")))
		})
	})
})
