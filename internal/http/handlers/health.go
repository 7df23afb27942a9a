package handlers

import (
	"net/http"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"thumbgen/internal/imagegen"
)

type providerHealth struct {
	imagegen.ProviderStatus
	Label string `json:"label"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Env       string                 `json:"env,omitempty"`
	Ready     map[imagegen.Mode]bool `json:"ready"`
	Providers []providerHealth       `json:"providers"`
	Storage   string                 `json:"storage,omitempty"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	res := healthResponse{
		Status: "ok",
		Ready: map[imagegen.Mode]bool{
			imagegen.ModeTextToImage:  false,
			imagegen.ModeImageToImage: false,
		},
		Providers: []providerHealth{},
	}
	if a.Config != nil {
		res.Env = a.Config.AppEnv
		res.Storage = a.Config.StorageDriver
	}
	if a.Images != nil {
		for mode := range res.Ready {
			res.Ready[mode] = a.Images.Ready(mode)
		}
		// cases.Caser is stateful and must not be shared between requests.
		caser := cases.Title(language.English)
		for _, p := range a.Images.Providers() {
			res.Providers = append(res.Providers, providerHealth{ProviderStatus: p, Label: caser.String(p.Name)})
		}
	}
	if !res.Ready[imagegen.ModeTextToImage] && !res.Ready[imagegen.ModeImageToImage] {
		res.Status = "degraded"
	}
	a.json(w, http.StatusOK, res)
}
