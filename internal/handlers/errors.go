package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/utils"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{services.ErrEmptyOrder, fiber.StatusBadRequest},
	{services.ErrInvalidQuantity, fiber.StatusBadRequest},
	{services.ErrMenuItemUnavailable, fiber.StatusBadRequest},
	{services.ErrNoDefaultAddress, fiber.StatusBadRequest},
	{services.ErrInvalidOrderStatus, fiber.StatusBadRequest},
	{services.ErrInvalidPaymentStatus, fiber.StatusBadRequest},
	{services.ErrInvalidRole, fiber.StatusBadRequest},
	{services.ErrInvalidPrice, fiber.StatusBadRequest},
	{services.ErrNothingToUpdate, fiber.StatusBadRequest},
	{services.ErrEmptyName, fiber.StatusBadRequest},
	{services.ErrMissingURL, fiber.StatusBadRequest},
	{utils.ErrPasswordTooShort, fiber.StatusBadRequest},

	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},

	{services.ErrMenuItemNotFound, fiber.StatusNotFound},
	{services.ErrAddressNotFound, fiber.StatusNotFound},
	{services.ErrOrderNotFound, fiber.StatusNotFound},
	{services.ErrPaymentNotFound, fiber.StatusNotFound},
	{services.ErrProfileNotFound, fiber.StatusNotFound},
	{services.ErrCategoryNotFound, fiber.StatusNotFound},
	{services.ErrGalleryImageNotFound, fiber.StatusNotFound},
	{gorm.ErrRecordNotFound, fiber.StatusNotFound},

	{services.ErrEmailTaken, fiber.StatusConflict},
	{services.ErrInUse, fiber.StatusConflict},
	{services.ErrTransitionForbidden, fiber.StatusConflict},
	{gorm.ErrDuplicatedKey, fiber.StatusConflict},
	{gorm.ErrForeignKeyViolated, fiber.StatusConflict},
}

// ErrorHandler renders every error as the JSON error envelope. Details of unexpected
// errors are only exposed outside production.
func ErrorHandler(cfg *config.Config, log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, message := classify(err)

		body := fiber.Map{
			"success": false,
			"message": message,
		}
		if !cfg.IsProduction() && message != err.Error() {
			body["detail"] = err.Error()
		}

		if status >= fiber.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Method(),
				"path":   c.Path(),
			}).Error("request failed")
		}

		return c.Status(status).JSON(body)
	}
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	for _, entry := range statusBySentinel {
		if errors.Is(err, entry.err) {
			return entry.status, entry.err.Error()
		}
	}

	return fiber.StatusInternalServerError, "internal server error"
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
