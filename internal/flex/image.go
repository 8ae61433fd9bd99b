package flex

import "regexp"

// imagePattern matches ![alt](url); both groups are non-greedy.
var imagePattern = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// ImageRef is a markdown image reference found in text.
type ImageRef struct {
	Alt string
	URL string
}

// FindImages returns the image references in text, left to right.
func FindImages(text string) []ImageRef {
	var refs []ImageRef
	for _, m := range imagePattern.FindAllStringSubmatch(text, -1) {
		refs = append(refs, ImageRef{Alt: m[1], URL: m[2]})
	}
	return refs
}

// ExtractImages converts every image reference in text into an Image and
// returns the images with the references deleted from text. Deletions are
// not rejoined, so a line holding only an image becomes blank.
func ExtractImages(text string) ([]*Image, string) {
	refs := FindImages(text)
	if len(refs) == 0 {
		return nil, text
	}
	images := make([]*Image, 0, len(refs))
	for _, ref := range refs {
		images = append(images, &Image{
			URL:        ref.URL,
			Size:       SizeFull,
			AspectMode: "fit",
		})
	}
	return images, imagePattern.ReplaceAllString(text, "")
}
