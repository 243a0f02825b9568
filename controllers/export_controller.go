package controllers

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"golang.org/x/exp/maps"

	"intake-app/scan"
)

// ExportController renders a session as an Excel packing list so the
// office can print or archive what was scanned before (or after) submit.
type ExportController struct {
	Manager *scan.Manager
}

func NewExportController(manager *scan.Manager) *ExportController {
	return &ExportController{Manager: manager}
}

func (c *ExportController) Export(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	view := session.View()

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Packing List"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "Session")
	f.SetCellValue(sheet, "B1", view.ID)
	f.SetCellValue(sheet, "A2", "Date")
	f.SetCellValue(sheet, "B2", view.Header.Date)
	f.SetCellValue(sheet, "A3", "Counterparty")
	f.SetCellValue(sheet, "B3", view.Header.Counterparty)
	f.SetCellValue(sheet, "A4", "Reference")
	f.SetCellValue(sheet, "B4", view.Header.Reference)
	if view.Header.WorkOrderNo != "" {
		f.SetCellValue(sheet, "A5", "Work Order")
		f.SetCellValue(sheet, "B5", view.Header.WorkOrderNo)
	}

	row := 7
	if len(view.Boxes) > 0 {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "BOX")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "CODE")
		row++
		for _, box := range view.Boxes {
			for _, code := range box.Codes {
				f.SetCellValue(sheet, fmt.Sprintf("A%d", row), box.Name)
				f.SetCellValue(sheet, fmt.Sprintf("B%d", row), code)
				row++
			}
		}
	} else {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "SKU")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "QTY")
		row++
		for _, line := range view.Lines {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.Identity)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.Quantity)
			row++
		}
	}

	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Distinct")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), view.Totals.DistinctLines)
	row++
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total Qty")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), view.Totals.TotalQuantity)

	if len(view.Totals.Duplicates) > 0 {
		row += 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "DUPLICATE")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "COUNT")
		row++
		codes := maps.Keys(view.Totals.Duplicates)
		sort.Strings(codes)
		for _, code := range codes {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), code)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), view.Totals.Duplicates[code])
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="packing-list-`+view.ID+`.xlsx"`)
	return ctx.Send(buf.Bytes())
}
