package controller

import (
	"sheetgrid-be/internal/dto"
	"sheetgrid-be/internal/pkg/serverutils"
	"sheetgrid-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICredentialController interface {
	RegisterRoutes(r fiber.Router)
	GetKeys(ctx *fiber.Ctx) error
	UpsertKeys(ctx *fiber.Ctx) error
}

type credentialController struct {
	credentialService service.ICredentialService
}

func NewCredentialController(credentialService service.ICredentialService) ICredentialController {
	return &credentialController{
		credentialService: credentialService,
	}
}

func (c *credentialController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/credential/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("keys", c.GetKeys)
	h.Post("keys", c.UpsertKeys)
}

func (c *credentialController) GetKeys(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.credentialService.GetKeys(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get keys", res))
}

func (c *credentialController) UpsertKeys(ctx *fiber.Ctx) error {
	// Keys are always written for the authenticated user, whatever the
	// body claims.
	userIdStr := ctx.Locals("user_id").(string)

	var req dto.UpsertKeysRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.UserId = userIdStr

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.credentialService.UpsertKeys(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save keys", res))
}
