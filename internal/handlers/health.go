package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/tenancy/pkg/errors"
	"github.com/charlesng35/tenancy/pkg/response"
)

var errDatabaseUnavailable = errors.New("SERVICE_UNAVAILABLE", "Database unavailable", http.StatusServiceUnavailable)

// Health returns a status payload useful for readiness checks. The database is
// pinged when db is non-nil.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(requestContext(c), 2*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				response.Error(c, errDatabaseUnavailable.WithInternal(err))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
