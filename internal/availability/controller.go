package availability

import (
	"net/http"

	"voyago/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	ledger Ledger
}

func NewController(ledger Ledger) *Controller {
	return &Controller{ledger: ledger}
}

// GetSnapshot returns the live seats-remaining view for one occurrence.
// The snapshot is advisory; checkout re-validates under the ledger lock.
func (c *Controller) GetSnapshot(ctx *gin.Context) {
	occurrenceID, err := uuid.Parse(ctx.Param("occurrenceId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid occurrence ID", nil, err.Error())
		return
	}

	snapshot, err := c.ledger.Snapshot(ctx.Request.Context(), occurrenceID)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if err == ErrRecordNotFound {
			statusCode = http.StatusNotFound
		}
		response.RespondJSON(ctx, "error", statusCode, "Failed to get availability", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Availability retrieved successfully", snapshot, nil)
}
