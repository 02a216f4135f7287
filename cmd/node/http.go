package main

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/node/pkg/log"
	"github.com/srand/jolt/node/pkg/node"
	"github.com/srand/jolt/node/pkg/utils"
)

func serveHttp(n *node.Node, uri string) *echo.Echo {
	host, err := utils.ParseHttpUrl(uri)
	if err != nil {
		log.Fatal(err)
	}

	log.Info("Listening on http", host)

	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.Use(utils.HttpLogger(log.Default()))
	r.Add(echo.GET, "/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	node.NewHttpHandler(n, r)

	go func() {
		if err := r.Start(host); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	return r
}
