package httpapi

import "net/http"

func handleIndex(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusOK, "submerge-go: subscription link aggregator\n")
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusOK, "ok\n")
}
