// Package sample generates fake records for populating test indices.
package sample

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helmuth/esport/internal/record"
)

const (
	KindSample = "sample"
	KindPerson = "person"
)

var (
	firstNames = []string{"Ada", "Bruno", "Chen", "Dara", "Elif", "Farah", "Goran", "Hana", "Ivo", "Jun", "Kemal", "Lina", "Mateo", "Nora", "Omar", "Priya"}
	lastNames  = []string{"Novak", "Okafor", "Lindqvist", "Moreau", "Tanaka", "Silva", "Kowalski", "Haddad", "Becker", "Rossi", "Nguyen", "Ivanova"}
	cities     = []string{"Lisbon", "Oslo", "Nairobi", "Osaka", "Quito", "Tallinn", "Leipzig", "Porto", "Denver", "Hobart"}
	countries  = []string{"PT", "NO", "KE", "JP", "EC", "EE", "DE", "US", "AU"}
	streets    = []string{"Harbor Road", "Linden Street", "Mill Lane", "Station Avenue", "Orchard Way", "Quarry Hill"}
	statuses   = []string{"active", "inactive", "pending", "suspended"}
	domains    = []string{"example.com", "example.org", "example.net", "test.io"}
	jobTitles  = []string{"Engineer", "Analyst", "Designer", "Manager", "Consultant", "Technician"}
	jobAreas   = []string{"Data", "Security", "Operations", "Research", "Marketing", "Infrastructure"}
	jobTypes   = []string{"Lead", "Senior", "Junior", "Principal", "Associate"}
	companies  = []string{"Northwind", "Globex", "Initech", "Umbrella", "Hooli", "Vandelay"}
	issuers    = []string{"visa", "mastercard", "amex", "discover"}
	words      = []string{"lorem", "ipsum", "dolor", "sit", "amet", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "index", "shard", "cluster", "scroll"}
)

// Generator produces records from a seeded random source, so a seed always yields the
// same records.
type Generator struct {
	rng  *rand.Rand
	now  time.Time
	kind map[string]func() *record.Record
}

// New returns a generator for seed. now anchors generated dates.
func New(seed uint64, now time.Time) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
	g.kind = map[string]func() *record.Record{
		KindSample: g.sampleDocument,
		KindPerson: g.person,
	}
	return g
}

// Kinds lists the record kinds this generator supports.
func (g *Generator) Kinds() []string {
	kinds := make([]string, 0, len(g.kind))
	for k := range g.kind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Generate returns n records of the given kind.
func (g *Generator) Generate(kind string, n int) ([]*record.Record, error) {
	gen, ok := g.kind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", record.ErrUnknownKind, kind, strings.Join(g.Kinds(), ", "))
	}
	if n < 0 {
		return nil, fmt.Errorf("count must not be negative, got %d", n)
	}
	recs := make([]*record.Record, n)
	for i := range recs {
		recs[i] = gen()
	}
	return recs, nil
}

func (g *Generator) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *Generator) digits(n int) string {
	var b strings.Builder
	for range n {
		b.WriteByte(byte('0' + g.rng.IntN(10)))
	}
	return b.String()
}

func (g *Generator) uuid() string {
	id, err := uuid.NewRandomFromReader(rngReader{g.rng})
	if err != nil {
		// rngReader never fails
		panic(err)
	}
	return id.String()
}

func (g *Generator) sentence(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = g.pick(words)
	}
	s := strings.Join(parts, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (g *Generator) sampleDocument() *record.Record {
	first, last := g.pick(firstNames), g.pick(lastNames)
	username := strings.ToLower(first + "." + last + g.digits(2))
	domain := g.pick(domains)

	emails := []any{username + "@" + domain}
	if g.rng.IntN(2) == 0 {
		emails = append(emails, strings.ToLower(first)+"@"+g.pick(domains))
	}

	rec := record.New(g.uuid())
	rec.Set("message", g.sentence(6+g.rng.IntN(6)))
	rec.Set("phoneNumber", "+1-"+g.digits(3)+"-"+g.digits(3)+"-"+g.digits(4))
	rec.Set("phoneVariation", "("+g.digits(3)+") "+g.digits(3)+"-"+g.digits(4))
	rec.Set("status", g.pick(statuses))
	rec.Set("name", map[string]any{
		"first": first,
		"last":  last,
	})
	rec.Set("username", username)
	rec.Set("password", g.digits(4)+strings.ToUpper(g.pick(words))+g.digits(2))
	rec.Set("emails", emails)
	rec.Set("location", map[string]any{
		"street":  g.digits(3) + " " + g.pick(streets),
		"city":    g.pick(cities),
		"state":   strings.ToUpper(g.pick(words)[:2]),
		"country": g.pick(countries),
		"zip":     g.digits(5),
		"coordinates": map[string]any{
			"latitude":  fmt.Sprintf("%.5f", g.rng.Float64()*180-90),
			"longitude": fmt.Sprintf("%.5f", g.rng.Float64()*360-180),
		},
	})
	rec.Set("website", "https://"+domain)
	rec.Set("domain", domain)
	rec.Set("job", map[string]any{
		"title":      g.pick(jobTitles),
		"descriptor": g.pick(jobTypes),
		"area":       g.pick(jobAreas),
		"type":       g.pick(jobTypes),
		"company":    g.pick(companies),
	})
	rec.Set("creditCard", map[string]any{
		"number": g.digits(4) + "-" + g.digits(4) + "-" + g.digits(4) + "-" + g.digits(4),
		"cvv":    g.digits(3),
		"issuer": g.pick(issuers),
	})
	rec.Set("uuid", rec.ID)
	rec.Set("objectId", g.objectID())
	return rec
}

func (g *Generator) objectID() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 24)
	for i := range b {
		b[i] = hex[g.rng.IntN(len(hex))]
	}
	return string(b)
}

func (g *Generator) person() *record.Record {
	age := 18 + g.rng.IntN(70)
	born := g.now.AddDate(-age, 0, -g.rng.IntN(365))

	rec := record.New(g.uuid())
	rec.Set("name", g.pick(firstNames)+" "+g.pick(lastNames))
	rec.Set("age", age)
	rec.Set("birthdate", born.UnixMilli())
	return rec
}

type rngReader struct {
	rng *rand.Rand
}

func (r rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}
