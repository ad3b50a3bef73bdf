package model

import "fmt"

// Library identifies an external content provider. The set is closed:
// provider tags arrive from clients as strings and must be parsed with
// ParseLibrary before use.
type Library string

const (
	LibraryShamela     Library = "shamela.ws"
	LibraryKetabOnline Library = "ketabonline.com"
	LibraryTurath      Library = "turath.io"
)

// LibraryInfo carries the human-facing metadata for a library.
type LibraryInfo struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

var libraryInfo = map[Library]LibraryInfo{
	LibraryShamela: {
		Label:       "Shamela",
		Description: "Comprehensive Islamic library with thousands of books",
		URL:         "https://shamela.ws",
	},
	LibraryKetabOnline: {
		Label:       "Ketab Online",
		Description: "Islamic books and resources online",
		URL:         "https://ketabonline.com",
	},
	LibraryTurath: {
		Label:       "Turath",
		Description: "Heritage Islamic texts and manuscripts",
		URL:         "https://turath.io",
	},
}

// AllLibraries returns the known libraries in a stable order.
func AllLibraries() []Library {
	return []Library{LibraryShamela, LibraryKetabOnline, LibraryTurath}
}

// ParseLibrary validates a provider tag. Unknown tags are rejected.
func ParseLibrary(s string) (Library, error) {
	lib := Library(s)
	if _, ok := libraryInfo[lib]; !ok {
		return "", fmt.Errorf("invalid library: %s", s)
	}
	return lib, nil
}

// Info returns the metadata for a library. The zero LibraryInfo is returned
// for unknown tags; callers that parsed the tag never see it.
func (l Library) Info() LibraryInfo {
	return libraryInfo[l]
}

func (l Library) String() string {
	return string(l)
}

// ContainsLibrary reports whether lib is a member of set.
func ContainsLibrary(set []Library, lib Library) bool {
	for _, l := range set {
		if l == lib {
			return true
		}
	}
	return false
}
