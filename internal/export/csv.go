// Package export renders a project snapshot as a spreadsheet.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// Header returns the column names written by WriteCSV.
func Header() []string {
	cols := []string{"epic", "story", "priority", "position"}
	cols = append(cols, project.AssetKeys...)
	return append(cols, "over_limit_count")
}

// WriteCSV writes one row per story in epic and story order. Epics and
// stories are already position-sorted in a snapshot.
func WriteCSV(w io.Writer, p *project.Project) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if p != nil {
		for _, e := range p.Epics {
			for _, s := range e.Stories {
				if err := cw.Write(row(e, s)); err != nil {
					return fmt.Errorf("writing story %s: %w", s.ID, err)
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(e *project.Epic, s *project.UserStory) []string {
	out := []string{e.Title, s.Content, string(s.Priority), strconv.Itoa(s.Position)}
	df := s.DerivedFields
	for _, key := range project.AssetKeys {
		var v string
		if df != nil {
			v = df.Assets[key]
		}
		out = append(out, v)
	}
	over := 0
	if df != nil {
		over = df.OverLimitCount
	}
	return append(out, strconv.Itoa(over))
}
