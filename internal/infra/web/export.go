package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"cardkey-service/internal/domain/model"
)

const exportSheet = "Cards"

var exportHeader = []interface{}{
	"ID", "Card Key", "Status", "Type", "Duration (days)", "Total Count", "Remaining Count",
	"Allow Reverify", "Device ID", "Verify Method", "Use Time", "Expire Time", "Create Time", "Remark",
}

// writeCardsXLSX streams cards into a single-sheet workbook.
func writeCardsXLSX(w io.Writer, cards []*model.Card) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		return err
	}
	for i, c := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		d := toCardDTO(c)
		row := []interface{}{
			d.ID, d.CardKey, c.Status.String(), d.CardType, d.Duration, d.TotalCount, d.RemainingCount,
			d.AllowReverify, d.DeviceID, d.VerifyMethod, deref(d.UseTime), deref(d.ExpireTime), d.CreateTime, d.Remark,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) handleExportCards(w http.ResponseWriter, r *http.Request) {
	f, err := cardFilter(r)
	if err != nil {
		failErr(w, r, s.log, "export_cards", err)
		return
	}
	cards, err := s.cardUC.Export(r.Context(), f)
	if err != nil {
		failErr(w, r, s.log, "export_cards", err)
		return
	}
	var buf bytes.Buffer
	if err := writeCardsXLSX(&buf, cards); err != nil {
		failErr(w, r, s.log, "export_cards", err)
		return
	}
	name := fmt.Sprintf("cards-%s.xlsx", s.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
