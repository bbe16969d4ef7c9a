// CLAUDE:SUMMARY Blocks configured resource types (images, fonts, media, stylesheets) on capture pages.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking intercepts requests and fails those whose resource
// type is listed. The returned router must be stopped when the page closes.
func applyResourceBlocking(page *rod.Page, types []string) (*rod.HijackRouter, error) {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(blockSet, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return nil, err
	}

	go router.Run()
	return router, nil
}

// shouldBlock maps CDP resource types to config names. Scripts and XHR are
// never blocked: canvas apps cannot render without them.
func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch lower := strings.ToLower(resType); lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	case "script", "xhr", "fetch", "document":
		return false
	default:
		return blockSet[lower]
	}
}
