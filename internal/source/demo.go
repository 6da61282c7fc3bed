package source

import (
	"context"
	"time"

	"github.com/zulandar/buildwatch/internal/project"
)

// DemoName is the source label of the demonstration set.
const DemoName = "Demo Data - Toronto"

const (
	demoBefore = "https://images.unsplash.com/photo-1541888946425-d81bb19240f5?w=800&h=600&fit=crop"
	demoAfter  = "https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&h=600&fit=crop"
)

// Demo serves five fixed downtown Toronto projects.
type Demo struct{}

// Name implements Source.
func (Demo) Name() string { return DemoName }

// FetchProjects implements Source. It never fails.
func (Demo) FetchProjects(ctx context.Context) ([]project.ConstructionProject, error) {
	return DemoProjects(), nil
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func unsplash(id string) string {
	return "https://images.unsplash.com/photo-" + id + "?w=800&h=600&fit=crop"
}

// DemoProjects returns a fresh copy of the demonstration set.
func DemoProjects() []project.ConstructionProject {
	raw := []project.ConstructionProject{
		{
			ID:                  "1",
			Name:                "The Meridian Residences",
			Address:             "123 King St W, Toronto",
			ProjectType:         project.TypeNewBuild,
			Description:         "12-storey luxury residential condo with retail on ground floor",
			Value:               15000000,
			PermitNumber:        "BP-2023-39413",
			PermitDate:          "2023-06-15",
			Status:              project.StatusActivePermit,
			Latitude:            43.6426,
			Longitude:           -79.3871,
			Contractor:          "Elite Builders Inc",
			EstimatedCompletion: "2026-10-15",
			OverallProgress:     53,
			Images: []project.Image{
				{ID: "img-1", URL: unsplash("1541888946425-d81bb19240f5"), Caption: "Foundation work in progress", UploadedBy: "Construction Watch", UploadedAt: ts("2025-01-10T14:30:00Z"), Type: project.ImageProgress},
				{ID: "img-2", URL: unsplash("1590496793907-4af9d1f8c5db"), Caption: "Concrete pouring", UploadedBy: "Local Neighbor", UploadedAt: ts("2025-01-08T09:15:00Z"), Type: project.ImageProgress},
			},
			Updates: []project.Update{
				{ID: "update-1", Username: "Local Neighbor", Text: "Foundation is complete! Framing crew arrives Monday. Great progress this week.", Timestamp: ts("2025-01-12T18:00:00Z"), Likes: 24},
				{ID: "update-2", Username: "Construction Watch", Text: "Concrete dried faster than expected. Should be ahead of schedule.", Timestamp: ts("2025-01-10T12:30:00Z"), Likes: 15},
			},
			Followers: 142,
		},
		{
			ID:                  "2",
			Name:                "Queen Street Heritage Restoration",
			Address:             "456 Queen St E, Toronto",
			ProjectType:         project.TypeRenovation,
			Description:         "Historic commercial building facade restoration and interior modernization",
			Value:               2500000,
			PermitNumber:        "BP-2024-12856",
			PermitDate:          "2024-08-20",
			Status:              project.StatusActivePermit,
			Latitude:            43.6571,
			Longitude:           -79.3633,
			Contractor:          "Heritage Restorations Ltd",
			EstimatedCompletion: "2026-03-20",
			OverallProgress:     97,
			Images: []project.Image{
				{ID: "img-1", URL: unsplash("1503387762-592deb58ef4e"), Caption: "Exterior restoration", UploadedBy: "Heritage Lover", UploadedAt: ts("2025-01-11T16:00:00Z"), Type: project.ImageProgress},
			},
			Updates: []project.Update{
				{ID: "update-1", Username: "Heritage Lover", Text: "Beautiful restoration work! The original brickwork is being preserved perfectly.", Timestamp: ts("2025-01-11T16:00:00Z"), Likes: 38},
			},
			Followers: 89,
		},
		{
			ID:                  "3",
			Name:                "Yonge Street Mixed-Use Development",
			Address:             "789 Yonge St, Toronto",
			ProjectType:         project.TypeNewBuild,
			Description:         "5-storey mixed-use development with commercial ground floor and residential above",
			Value:               8000000,
			PermitNumber:        "BP-2024-15234",
			PermitDate:          "2024-09-01",
			Status:              project.StatusActivePermit,
			Latitude:            43.6634,
			Longitude:           -79.3808,
			Contractor:          "Urban Builders Corp",
			EstimatedCompletion: "2026-12-01",
			OverallProgress:     29,
			Images: []project.Image{
				{ID: "img-1", URL: unsplash("1589939705384-5185137a7f0f"), Caption: "Excavation underway", UploadedBy: "Community Member", UploadedAt: ts("2025-01-09T11:00:00Z"), Type: project.ImageProgress},
			},
			Updates: []project.Update{
				{ID: "update-1", Username: "Community Member", Text: "Excavation progressing well. Hitting bedrock next week.", Timestamp: ts("2025-01-09T11:00:00Z"), Likes: 12},
			},
			Followers: 67,
		},
		{
			ID:                  "4",
			Name:                "Distillery District Lofts",
			Address:             "15 Trinity St, Toronto",
			ProjectType:         project.TypeRenovation,
			Description:         "Historic warehouse conversion to luxury loft condos",
			Value:               12000000,
			PermitNumber:        "BP-2023-45678",
			PermitDate:          "2023-11-10",
			Status:              project.StatusActivePermit,
			Latitude:            43.6503,
			Longitude:           -79.3598,
			Contractor:          "Loft Conversions Inc",
			EstimatedCompletion: "2026-06-30",
			OverallProgress:     71,
			Images: []project.Image{
				{ID: "img-1", URL: unsplash("1503387762-592deb58ef4e"), Caption: "Interior framing", UploadedBy: "Architecture Fan", UploadedAt: ts("2025-01-13T10:00:00Z"), Type: project.ImageProgress},
			},
			Updates: []project.Update{
				{ID: "update-1", Username: "Architecture Fan", Text: "Love how they preserved the original brick walls! This will be stunning.", Timestamp: ts("2025-01-13T10:00:00Z"), Likes: 56},
			},
			Followers: 234,
		},
		{
			ID:                  "5",
			Name:                "Harbourfront Towers",
			Address:             "88 Queens Quay W, Toronto",
			ProjectType:         project.TypeNewBuild,
			Description:         "Twin 40-storey luxury waterfront residential towers",
			Value:               75000000,
			PermitNumber:        "BP-2023-28901",
			PermitDate:          "2023-04-01",
			Status:              project.StatusActivePermit,
			Latitude:            43.6387,
			Longitude:           -79.3816,
			Contractor:          "Skyline Construction Group",
			EstimatedCompletion: "2027-08-15",
			OverallProgress:     66,
			Images: []project.Image{
				{ID: "img-1", URL: unsplash("1541888946425-d81bb19240f5"), Caption: "Tower construction progress", UploadedBy: "Waterfront Resident", UploadedAt: ts("2025-01-12T15:00:00Z"), Type: project.ImageProgress},
			},
			Updates: []project.Update{
				{ID: "update-1", Username: "Waterfront Resident", Text: "Construction is moving fast! Already at floor 12 on Tower A.", Timestamp: ts("2025-01-12T15:00:00Z"), Likes: 45},
			},
			Followers: 312,
		},
	}

	out := make([]project.ConstructionProject, len(raw))
	for i, p := range raw {
		p.BeforeImage = demoBefore
		p.AfterImage = demoAfter
		out[i] = project.Assemble(p)
	}
	return out
}
