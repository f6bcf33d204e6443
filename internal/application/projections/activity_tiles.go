package projections

import (
	"context"
	"fmt"
	"time"

	"signups/internal/application/directory"
	"signups/internal/domain/activity"
	"signups/internal/domain/signup"
)

// AppName is sent to the photo provider in attribution referral links.
const AppName = "club_signups"

// ActivityTile is one card on the dashboard.
type ActivityTile struct {
	ID               string
	Kind             activity.Kind
	Name             string
	Date             time.Time
	DateLabel        string
	Location         string
	DescriptionHTML  string
	ImageURL         string
	Attribution      *activity.Attribution
	RequiresApproval bool
	View             signup.TileView
}

// ActivityTilesQuery carries query parameters. ActivityID narrows the result
// to one tile.
type ActivityTilesQuery struct {
	UserID     string
	ActivityID string
	AsOf       time.Time
}

// ActivityTilesResult carries the query result.
type ActivityTilesResult struct {
	Tiles []ActivityTile
}

// ActivityTilesDeps holds dependencies for QueryActivityTiles.
type ActivityTilesDeps struct {
	ActivityStore directory.ActivityStore
	SignupStore   directory.SignupLister
}

// QueryActivityTiles builds the member's dashboard tiles.
// PRE: UserID is the signed-in member
// POST: Tiles are upcoming activities, soonest first, each with its allowed action
// POST: An unknown ActivityID returns an error wrapping activity.ErrNotFound
func QueryActivityTiles(ctx context.Context, query ActivityTilesQuery, deps ActivityTilesDeps) (ActivityTilesResult, error) {
	dir := directory.New(directory.Deps{Activities: deps.ActivityStore, Signups: deps.SignupStore})
	if err := dir.Refresh(ctx, query.AsOf, query.UserID); err != nil {
		return ActivityTilesResult{}, err
	}

	list := dir.Activities()
	if query.ActivityID != "" {
		a, ok := dir.Get(query.ActivityID)
		if !ok {
			return ActivityTilesResult{}, fmt.Errorf("activity %s: %w", query.ActivityID, activity.ErrNotFound)
		}
		list = []activity.Activity{a}
	}

	tiles := make([]ActivityTile, 0, len(list))
	for i := range list {
		a := &list[i]
		date := a.DateOn(query.AsOf)
		imageURL := a.Image.URL
		if imageURL == "" {
			imageURL = directory.DefaultImageURL
		}
		tiles = append(tiles, ActivityTile{
			ID:               a.ID,
			Kind:             a.Kind,
			Name:             a.Name,
			Date:             date,
			DateLabel:        date.Format("Monday 2 January"),
			Location:         a.Location,
			DescriptionHTML:  RenderMarkdown(a.Description),
			ImageURL:         imageURL,
			Attribution:      a.Image.Attribution(AppName),
			RequiresApproval: a.RequiresApproval,
			View:             signup.Tile(a, dir.StatusFor(a.ID), query.AsOf),
		})
	}
	return ActivityTilesResult{Tiles: tiles}, nil
}
