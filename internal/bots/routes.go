package bots

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the WeCom callback endpoints on the given router.
func RegisterRoutes(r chi.Router, wecom *WeComHandler) {
	r.Get("/api/bots/wecom/{channel}", wecom.HandleVerify)
	r.Post("/api/bots/wecom/{channel}", wecom.HandleCallback)
}
