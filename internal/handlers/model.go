package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/studyforge/studyforge-backend/internal/services"
)

// GET /api/models
// List the selectable model aliases.
func ListModels(c *gin.Context) {
	catalog := services.Catalog()
	out := make([]gin.H, 0, len(catalog))
	for _, entry := range catalog {
		out = append(out, gin.H{
			"alias":    entry.Alias,
			"provider": entry.Provider,
			"category": entry.Category,
		})
	}
	RespondOK(c, gin.H{"models": out})
}
