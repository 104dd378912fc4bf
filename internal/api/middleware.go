package api

import (
	"net/http"

	"github.com/annel0/sniff-parser/internal/guid"
	"github.com/gin-gonic/gin"
)

const guidKey = "guid"

// corsMiddleware разрешает чтение API из браузера
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// guidMiddleware разбирает параметр :guid и кладёт его в контекст
func guidMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		g, err := guid.Parse(c.Param("guid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Неверный GUID: " + err.Error(),
			})
			c.Abort()
			return
		}

		c.Set(guidKey, g)
		c.Next()
	}
}

// paramGUID возвращает GUID, разобранный guidMiddleware
func paramGUID(c *gin.Context) guid.GUID {
	return c.MustGet(guidKey).(guid.GUID)
}
