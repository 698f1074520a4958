package handlers

import (
	"net/http"

	"charchat/pkg/characters"
	"charchat/pkg/utils"

	"github.com/gorilla/mux"
)

// RegisterCharacters registers the read-only character catalog.
func RegisterCharacters(r *mux.Router) {
	r.HandleFunc("/characters", listCharacters).Methods(http.MethodGet)
	r.HandleFunc("/characters/{id}", getCharacter).Methods(http.MethodGet)
}

func listCharacters(w http.ResponseWriter, r *http.Request) {
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Characters []characters.Character `json:"characters"`
	}{Characters: characters.All()})
}

func getCharacter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ch, ok := characters.ByID(id)
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "character not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, ch)
}
