package qontosync

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

type pageFetchFunc func(ctx context.Context, page, perPage int) ([]json.RawMessage, PageMeta, error)

// fetchAllPages walks a paginated endpoint from page 1 until meta.next_page
// is null, streaming every batch to handle so a large sync never buffers
// the full record set. A fetch or handle failure aborts this entity only;
// the orchestrator keeps sibling entities running. Cancellation is checked
// at the top of the loop, never mid-call.
func fetchAllPages(ctx context.Context, logger *logrus.Logger, entity string, perPage int, fetch pageFetchFunc, handle func(items []json.RawMessage) error) (int, error) {
	page := 1
	pages := 0
	for {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		items, meta, err := fetch(ctx, page, perPage)
		if err != nil {
			return pages, err
		}
		pages++

		if err := handle(items); err != nil {
			return pages, err
		}

		fields := logrus.Fields{
			"module": "qontosync",
			"entity": entity,
			"page":   page,
			"items":  len(items),
		}
		if meta.TotalPages != nil {
			fields["totalPages"] = *meta.TotalPages
		} else {
			fields["totalPages"] = "unknown"
		}
		logger.WithFields(fields).Debug("synced page")

		if meta.NextPage == nil {
			return pages, nil
		}
		page = *meta.NextPage
	}
}
