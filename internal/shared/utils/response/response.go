package response

import "github.com/gin-gonic/gin"

// StandardApiResponse is the envelope every handler writes. Clients key off
// Status and StatusCode; Data and Errors are mutually exclusive in practice.
type StandardApiResponse struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

func Error(c *gin.Context, code int, message string, errs interface{}) {
	RespondJSON(c, "error", code, message, nil, errs)
}
