package controller

import (
	"bytes"
	"fmt"

	"sheetgrid-be/internal/pkg/serverutils"
	"sheetgrid-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IWorkbookController interface {
	RegisterRoutes(r fiber.Router)
	Import(ctx *fiber.Ctx) error
	Export(ctx *fiber.Ctx) error
	SaveSnapshot(ctx *fiber.Ctx) error
	LoadSnapshot(ctx *fiber.Ctx) error
}

type workbookController struct {
	workbookService service.IWorkbookService
}

func NewWorkbookController(workbookService service.IWorkbookService) IWorkbookController {
	return &workbookController{
		workbookService: workbookService,
	}
}

func (c *workbookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/workbook/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("import", c.Import)
	h.Get("export", c.Export)
	h.Post("snapshot", c.SaveSnapshot)
	h.Get("snapshot", c.LoadSnapshot)
}

func (c *workbookController) Import(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Workbook file is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	res, err := c.workbookService.ImportXLSX(ctx.Context(), userId, file, fileHeader.Filename)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success import workbook", res))
}

func (c *workbookController) Export(ctx *fiber.Ctx) error {
	var buf bytes.Buffer
	filename, err := c.workbookService.ExportXLSX(ctx.Context(), &buf)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return ctx.Send(buf.Bytes())
}

func (c *workbookController) SaveSnapshot(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	if err := c.workbookService.SaveSnapshot(ctx.Context(), userId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Snapshot queued", nil))
}

func (c *workbookController) LoadSnapshot(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.workbookService.LoadSnapshot(ctx.Context(), userId)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}

	return ctx.JSON(serverutils.SuccessResponse("Success load snapshot", res))
}
