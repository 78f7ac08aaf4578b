package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n8dizzle/Christmas-automations/models"
	"golang.org/x/sync/errgroup"
)

// probeTimeout bounds the reachability probe of all sites together.
const probeTimeout = 15 * time.Second

// Sites returns a handler for GET /api/v1/sites.
//
// With ?probe=true each lookup page is fetched over plain HTTP, in parallel,
// to report whether it is reachable. The browser is never started.
func Sites(d Dispatcher, p Prober) gin.HandlerFunc {
	return func(c *gin.Context) {
		adapters := d.Adapters()
		sites := make([]models.SiteInfo, len(adapters))
		for i, a := range adapters {
			sites[i] = models.SiteInfo{
				Adapter: a.Name(),
				Tokens:  a.Tokens(),
				URL:     a.URL(),
			}
		}

		if p != nil && c.Query("probe") == "true" {
			ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
			defer cancel()

			var g errgroup.Group
			for i := range sites {
				g.Go(func() error {
					sites[i].Reachable = p.Check(ctx, sites[i].URL)
					return nil
				})
			}
			_ = g.Wait()
		}

		c.JSON(http.StatusOK, models.SitesResponse{Sites: sites})
	}
}
