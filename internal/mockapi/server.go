// Package mockapi serves a stand-in for the remote image-to-text service so
// a full scan can run end to end without the real backend.
package mockapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"introscan/internal/relay"
)

type describeRequest struct {
	Link   string   `json:"link" binding:"required"`
	Images []string `json:"images"`
}

// Router builds the mock service's routes.
func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST(relay.DescribePath, func(c *gin.Context) {
		var req describeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"texts": describe(req)})
	})

	return r
}

// describe fabricates a deterministic description from the request shape.
func describe(req describeRequest) []string {
	texts := []string{fmt.Sprintf("%s 상품의 상세 설명입니다.", req.Link)}
	if len(req.Images) > 0 {
		texts = append(texts, fmt.Sprintf("이미지 %d장을 분석했습니다.", len(req.Images)))
	}
	return texts
}

// Run serves the mock service until the listener fails.
func Run(addr string) error {
	return Router().Run(addr)
}
