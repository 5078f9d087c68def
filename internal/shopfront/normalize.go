package shopfront

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/stockpile/internal/models"
)

// skuTokenPattern matches a tag-delimited SKU token in product markup, e.g.
// ">FZ8117-100<". Tokens are uppercase letters, digits, and hyphens.
var skuTokenPattern = regexp.MustCompile(`>([A-Z0-9-]+)<`)

// bareSKUPattern matches a whole string that is itself a SKU token.
var bareSKUPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// ExtractSKU scans product markup for the first tag-delimited SKU token. When
// no delimited token exists, it strips the markup and accepts the remaining
// text only if that text is itself a bare SKU token. Returns "" when nothing
// matches; never fails.
func ExtractSKU(markup string) string {
	if markup == "" {
		return ""
	}

	if m := skuTokenPattern.FindStringSubmatch(markup); m != nil {
		return strings.TrimSpace(m[1])
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(doc.Text())
	if bareSKUPattern.MatchString(text) {
		return text
	}

	return ""
}

// Normalize transforms one raw record into a catalog product. It never fails:
// absent fields map to absent or empty values, so one bad record cannot abort
// a refresh. productURLBase is the shopfront base URL used to derive the
// product page link from the handle.
func Normalize(raw RawProduct, productURLBase string) models.Product {
	p := models.Product{
		SKU:        ExtractSKU(raw.BodyHTML),
		Title:      raw.Title,
		Handle:     raw.Handle,
		Vendor:     raw.Vendor,
		Tags:       raw.Tags,
		BodyMarkup: raw.BodyHTML,
		Variants:   make([]models.Variant, 0, len(raw.Variants)),
	}

	for _, img := range raw.Images {
		p.Images = append(p.Images, models.Image{ID: img.ID, Src: img.Src})
	}
	if len(p.Images) > 0 {
		first := p.Images[0]
		p.DefaultImage = &first
	}

	for _, v := range raw.Variants {
		variant := models.Variant{
			Title:     v.Title,
			Price:     v.Price,
			Available: v.Available,
		}
		// A variant without its own image stays unset here; the fallback to
		// the product default image is resolved at lookup time.
		if v.FeaturedImage != nil {
			variant.FeaturedImage = *v.FeaturedImage
		}
		p.Variants = append(p.Variants, variant)
	}

	if raw.Handle != "" && productURLBase != "" {
		p.ProductURL = productURLBase + "/products/" + raw.Handle
	}

	return p
}
