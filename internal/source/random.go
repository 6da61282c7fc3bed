package source

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/buildwatch/internal/project"
)

// RandomName is the source label of generated batches.
const RandomName = "Generated Data"

// Point is a map coordinate.
type Point struct {
	Latitude  float64
	Longitude float64
}

// spread is the maximum offset, in degrees, of generated or jittered
// coordinates from the centre. Roughly 5 km at Toronto's latitude.
const spread = 0.045

var (
	streets     = []string{"King St W", "Queen St E", "Dundas St W", "Bloor St W", "Spadina Ave", "Bathurst St", "Front St E", "College St", "Danforth Ave", "Dufferin St"}
	developers  = []string{"Maple Leaf Construction", "Lakeshore Builders", "Northbound Developments", "Harbour City Contracting", "Parkdale Renovations"}
	nameSuffix  = []string{"Residences", "Lofts", "Commons", "Place", "Towers", "Annex"}
	typeWeights = []string{project.TypeNewBuild, project.TypeNewBuild, project.TypeRenovation, project.TypeRenovation, project.TypeAddition, project.TypeDemolition}
)

// Random generates plausible projects around a centre point. Each gen-N
// record draws from a stream keyed by the seed and N, so a given seed yields
// the same project under the same id on every fetch.
type Random struct {
	seed   int64
	count  int
	center Point
	now    func() time.Time
}

// NewRandom returns a generator of count projects keyed by seed.
func NewRandom(seed int64, count int, center Point) *Random {
	return &Random{seed: seed, count: count, center: center, now: time.Now}
}

// Name implements Source.
func (r *Random) Name() string { return RandomName }

// FetchProjects implements Source.
func (r *Random) FetchProjects(ctx context.Context) ([]project.ConstructionProject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := r.now()
	out := make([]project.ConstructionProject, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.generate(i+1, now))
	}
	return out, nil
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}

func (r *Random) generate(n int, now time.Time) project.ConstructionProject {
	rng := recordRand(r.seed, strconv.Itoa(n))
	street := pick(rng, streets)
	num := 10 + rng.Intn(990)
	progress := rng.Intn(101)
	ptype := pick(rng, typeWeights)
	issued := now.AddDate(0, 0, -rng.Intn(900))
	finish := now.AddDate(0, 0, 30+rng.Intn(1000))

	return project.Assemble(project.ConstructionProject{
		ID:                  fmt.Sprintf("gen-%d", n),
		Name:                fmt.Sprintf("%s %s", streetName(street), pick(rng, nameSuffix)),
		Address:             fmt.Sprintf("%d %s, Toronto", num, street),
		ProjectType:         ptype,
		Description:         fmt.Sprintf("%s project on %s", ptype, street),
		Value:               float64(100+rng.Intn(50000)) * 1000,
		PermitNumber:        fmt.Sprintf("BP-%d-%05d", issued.Year(), rng.Intn(100000)),
		PermitDate:          issued.Format("2006-01-02"),
		Status:              statusForProgress(progress),
		Latitude:            r.center.Latitude + (rng.Float64()*2-1)*spread,
		Longitude:           r.center.Longitude + (rng.Float64()*2-1)*spread,
		Contractor:          pick(rng, developers),
		EstimatedCompletion: finish.Format("2006-01-02"),
		OverallProgress:     progress,
		Followers:           rng.Intn(400),
	})
}

// streetName drops the trailing suffix: "King St W" -> "King St".
func streetName(s string) string {
	if i := strings.LastIndex(s, " "); i > 0 {
		return s[:i]
	}
	return s
}

func statusForProgress(p int) string {
	switch {
	case p >= 100:
		return project.StatusCompleted
	case p < 20:
		return project.StatusActivePermit
	default:
		return project.StatusUnderConstruction
	}
}
