package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrovision/leafcheck/constants"
	"github.com/agrovision/leafcheck/inference"
	"github.com/agrovision/leafcheck/logging"
)

// Classifier is the slice of the inference layer the handlers need; tests
// substitute a stub.
type Classifier interface {
	Predict(imageBytes []byte) (inference.Prediction, error)
	Info() map[string]interface{}
}

// APIs holds the handler dependencies.
type APIs struct {
	C      Classifier
	Logger *zap.Logger
}

// RegisterRoutes wires the HTTP handlers to the gin router.
func (a *APIs) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", a.Health)
	r.GET("/model", a.ShowModel)
	r.POST("/predict", a.Predict)
}

// Health is a liveness probe.
func (a *APIs) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ShowModel reports metadata about the loaded model.
func (a *APIs) ShowModel(c *gin.Context) {
	c.JSON(http.StatusOK, a.C.Info())
}

// PredictResponse is the prediction payload returned to the caller.
type PredictResponse struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// Predict classifies one uploaded leaf photograph.
func (a *APIs) Predict(c *gin.Context) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(a.Logger, "api.predict", requestID)

	file, header, err := c.Request.FormFile(constants.ImageFormField)
	if err != nil {
		Error(c, http.StatusBadRequest,
			fmt.Errorf("image file is required in field %q", constants.ImageFormField))
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		Error(c, http.StatusBadRequest, err)
		return
	}

	prediction, err := a.C.Predict(imageBytes)
	if err != nil {
		if errors.Is(err, inference.ErrInvalidImage) {
			opLogger.Warn("rejected upload",
				zap.String("file", header.Filename),
				zap.Error(err))
			Error(c, http.StatusBadRequest, err)
			return
		}

		wrapped := logging.NewOperationError("api.predict", requestID, err)
		opLogger.Error("inference failed", zap.Error(wrapped))
		Error(c, http.StatusInternalServerError, errors.New("prediction failed"))
		return
	}

	opLogger.Info("prediction served",
		zap.String("file", header.Filename),
		zap.String("disease", prediction.Label),
		zap.Float64("confidence", prediction.Confidence))

	c.JSON(http.StatusOK, PredictResponse{
		Disease:    prediction.Label,
		Confidence: prediction.Confidence,
	})
}

// HTTPError is the JSON error payload.
type HTTPError struct {
	Error string `json:"error"`
}

// Error writes a JSON error response.
func Error(c *gin.Context, status int, err error) {
	c.JSON(status, HTTPError{
		Error: err.Error(),
	})
}
