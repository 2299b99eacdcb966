package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection         = "users"
	listingsCollection      = "listings"
	dealsCollection         = "deals"
	messagesCollection      = "messages"
	notificationsCollection = "notifications"
	documentsCollection     = "documents"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// deleteWhere removes every document of query in one bulk write.
func deleteWhere(ctx context.Context, client *firestore.Client, query firestore.Query) error {
	iter := query.Documents(ctx)
	defer iter.Stop()

	bw := client.BulkWriter(ctx)
	defer bw.End()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return err
		}
	}
	return nil
}

// decodeAll drains iter into T values.
func decodeAll[T any](iter *firestore.DocumentIterator) ([]*T, error) {
	defer iter.Stop()

	var out []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var item T
		if err := doc.DataTo(&item); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, nil
}

// countQuery uses a server-side aggregation instead of fetching documents.
func countQuery(ctx context.Context, query firestore.Query) (int64, error) {
	res, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["total"]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case interface{ GetIntegerValue() int64 }:
		return n.GetIntegerValue(), nil
	}
	return 0, nil
}
