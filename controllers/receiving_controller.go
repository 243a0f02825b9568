package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"

	"intake-app/journal"
	"intake-app/recordstore"
	"intake-app/scan"
)

// workOrderCodeWidth is the fixed barcode width used on factory work
// orders. Scanner bursts are chunked into codes of this length.
const workOrderCodeWidth = 6

// ReceivingController drives factory order receiving: a partitioned scope
// of boxes holding presence-only codes, each corroborated against the work
// order on the record API before acceptance, with the declared piece count
// as a hard ceiling.
type ReceivingController struct {
	Manager *scan.Manager
	Store   *recordstore.Client
	Journal *journal.Journal
}

func NewReceivingController(manager *scan.Manager, store *recordstore.Client, j *journal.Journal) *ReceivingController {
	return &ReceivingController{Manager: manager, Store: store, Journal: j}
}

func (c *ReceivingController) CreateSession(ctx *fiber.Ctx) error {
	var input struct {
		Date          string `json:"date" validate:"required"`
		WorkOrderNo   string `json:"work_order_no" validate:"required"`
		Counterparty  string `json:"counterparty"`
		Remarks       string `json:"remarks"`
		CapacityBoxes int    `json:"capacity_boxes" validate:"min=1"`
		CapacityPcs   int    `json:"capacity_pcs" validate:"min=1"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	session := c.Manager.Create(
		scan.Config{
			Partitioned:  true,
			CodeWidth:    workOrderCodeWidth,
			RequireCheck: true,
		},
		scan.Header{
			Date:          input.Date,
			WorkOrderNo:   input.WorkOrderNo,
			Counterparty:  input.Counterparty,
			Remarks:       input.Remarks,
			CapacityBoxes: input.CapacityBoxes,
			CapacityPcs:   input.CapacityPcs,
		},
	)

	// The first box is opened up front, the floor starts taping one
	// immediately.
	if _, err := session.AddBox(""); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Receiving session created", "data": session.View()})
}

func (c *ReceivingController) AddBox(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	var input struct {
		Name string `json:"name"`
	}
	// Body is optional, an empty name gets an auto-generated one.
	_ = ctx.BodyParser(&input)

	box, err := session.AddBox(input.Name)
	if err != nil {
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Box added", "data": box})
}

// Scan feeds raw scanner input into one box. The input may contain several
// concatenated fixed-width codes; each chunk is validated against the work
// order before acceptance and a trailing partial chunk is held pending.
func (c *ReceivingController) Scan(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	var input struct {
		BoxOrdinal int    `json:"box_ordinal"`
		Data       string `json:"data"`
	}

	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := session.ScanInto(ctx.UserContext(), input.BoxOrdinal, input.Data)
	if err != nil {
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	journalScanResult(c.Journal, session, "receiving", input.BoxOrdinal, 1, currentUserID(ctx), result)

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Scan processed", "data": result})
}

// ClearPending drops the held partial chunk for a box (the scan field lost
// focus mid-code).
func (c *ReceivingController) ClearPending(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	boxOrdinal, err := ctx.ParamsInt("box")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid box ordinal"})
	}

	session.ClearPending("box-" + strconv.Itoa(boxOrdinal))
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Pending input cleared"})
}

func (c *ReceivingController) RemoveCode(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	boxOrdinal, err := ctx.ParamsInt("box")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid box ordinal"})
	}
	index, err := ctx.ParamsInt("index")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid code index"})
	}

	if err := session.RemoveCodeAt(boxOrdinal, index); err != nil {
		if errors.Is(err, scan.ErrBoxNotFound) || errors.Is(err, scan.ErrCodeNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Code removed", "data": session.View()})
}

func (c *ReceivingController) RemoveBox(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	boxOrdinal, err := ctx.ParamsInt("box")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid box ordinal"})
	}

	if err := session.RemoveBox(boxOrdinal); err != nil {
		if errors.Is(err, scan.ErrBoxNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return ctx.Status(scanStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Box removed", "data": session.View()})
}

func (c *ReceivingController) GetSession(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session found", "data": session.View()})
}

func (c *ReceivingController) Submit(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}

	view := session.View()
	submitErr := session.Submit(ctx.UserContext(), c.Store.WithToken(bearerToken(ctx)))

	c.Journal.RecordSubmission(journal.SubmissionLog{
		SessionID:  session.IDString(),
		Scope:      "receiving",
		Reference:  view.Header.WorkOrderNo,
		LineCount:  view.Totals.DistinctLines,
		TotalQty:   view.Totals.TotalQuantity,
		Success:    submitErr == nil,
		FailReason: errString(submitErr),
		CreatedBy:  currentUserID(ctx),
	})

	if submitErr != nil {
		return submitError(ctx, submitErr)
	}
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Receiving submitted"})
}

func (c *ReceivingController) Discard(ctx *fiber.Ctx) error {
	session, err := sessionFromParam(c.Manager, ctx)
	if err != nil {
		return err
	}
	c.Manager.Discard(session.ID())
	return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "message": "Session discarded"})
}
