// internal/favicon/links.go
package favicon

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// DefaultEndpoint is the favicon-rendering service the links point at.
const DefaultEndpoint = "https://www.google.com/s2/favicons"

// Sizes lists the pixel sizes a link set always contains, in display order.
var Sizes = []int{16, 32, 64, 128, 256, 512}

// IsSupportedSize reports whether size is one of Sizes.
func IsSupportedSize(size int) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// FileName is the name an exported icon of the given size is saved under.
// It encodes the requested size, not the size of the image actually served.
func FileName(size int) string {
	return "favicon-" + strconv.Itoa(size) + ".png"
}

// LinkSet maps each supported size to its image URL. All entries come from
// the same normalized target.
type LinkSet struct {
	Target string         `json:"target"`
	Links  map[int]string `json:"links"`
}

// Len returns the number of entries.
func (ls LinkSet) Len() int {
	return len(ls.Links)
}

// IsEmpty reports whether no lookup result is held.
func (ls LinkSet) IsEmpty() bool {
	return len(ls.Links) == 0
}

// Get returns the link for size.
func (ls LinkSet) Get(size int) (string, bool) {
	link, ok := ls.Links[size]
	return link, ok
}

// Contains reports whether link is one of the set's URLs.
func (ls LinkSet) Contains(size int, link string) bool {
	got, ok := ls.Links[size]
	return ok && got == link
}

// SortedSizes returns the sizes present in the set in ascending order.
func (ls LinkSet) SortedSizes() []int {
	sizes := make([]int, 0, len(ls.Links))
	for size := range ls.Links {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

// Builder derives link sets against a favicon endpoint.
type Builder struct {
	endpoint string
}

// NewBuilder returns a Builder for endpoint. An empty endpoint selects
// DefaultEndpoint.
func NewBuilder(endpoint string) (*Builder, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid favicon endpoint %q: %w", endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid favicon endpoint %q: must be an absolute http(s) URL", endpoint)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("invalid favicon endpoint %q: must not carry a query or fragment", endpoint)
	}

	return &Builder{endpoint: endpoint}, nil
}

// Endpoint returns the endpoint links are built against.
func (b *Builder) Endpoint() string {
	return b.endpoint
}

// Derive normalizes input and builds one link per supported size.
func (b *Builder) Derive(input string) (LinkSet, error) {
	target, err := Normalize(input)
	if err != nil {
		return LinkSet{}, err
	}

	href := target.String()
	links := make(map[int]string, len(Sizes))
	for _, size := range Sizes {
		links[size] = b.Link(size, href)
	}

	return LinkSet{Target: href, Links: links}, nil
}

// Link templates one request URL. The target is embedded as given, the way
// the rendering service expects it.
func (b *Builder) Link(size int, target string) string {
	var sb strings.Builder
	sb.Grow(len(b.endpoint) + len(target) + 24)
	sb.WriteString(b.endpoint)
	sb.WriteString("?sz=")
	sb.WriteString(strconv.Itoa(size))
	sb.WriteString("&domain_url=")
	sb.WriteString(target)
	return sb.String()
}

var defaultBuilder = &Builder{endpoint: DefaultEndpoint}

// DeriveLinks derives a link set against DefaultEndpoint.
func DeriveLinks(input string) (LinkSet, error) {
	return defaultBuilder.Derive(input)
}
