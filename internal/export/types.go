// Package export writes vetting run results out: delimited bucket files on
// disk and, optionally, a Google Sheets report of the same tables.
package export

import (
	"github.com/Veraticus/winnow/internal/model"
	"github.com/Veraticus/winnow/internal/service"
)

// Report bundles everything an exporter needs to describe one finished
// vetting run: the run record, the bucket partition, the unresolved list,
// and the subject metadata behind each ID.
type Report struct {
	Run        *model.Run
	Subjects   map[int64]model.Subject
	Buckets    map[model.Bucket][]int64
	Unresolved []int64
	Stats      service.SweepStats
}

// SubjectIndex builds the ID lookup exporters use to resolve coordinates
// and viewer links.
func SubjectIndex(subjects []model.Subject) map[int64]model.Subject {
	index := make(map[int64]model.Subject, len(subjects))
	for _, s := range subjects {
		index[s.ID] = s
	}
	return index
}

// sections returns every subject list in the report in fixed order: the
// four buckets, then the unresolved list.
func (r Report) sections() []section {
	sections := make([]section, 0, len(model.Buckets())+1)
	for _, bucket := range model.Buckets() {
		sections = append(sections, section{Name: string(bucket), IDs: r.Buckets[bucket]})
	}
	sections = append(sections, section{Name: "unresolved", IDs: r.Unresolved})
	return sections
}

// section is one named subject list within a report.
type section struct {
	Name string
	IDs  []int64
}
