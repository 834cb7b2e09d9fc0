package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/go-api-community/internal/domain"
)

// tagTimeLayout is fixed width so sort keys order lexically by time.
const tagTimeLayout = "2006-01-02T15:04:05.000000000Z"

const tagQueryPage = 50

type tagEntry struct {
	Tag     string `dynamodbav:"tag"`
	SortKey string `dynamodbav:"sk"`
	PostID  string `dynamodbav:"post_id"`
}

// tagHit is one post found under a tag, keyed for newest-first ordering.
type tagHit struct {
	PostID  string `dynamodbav:"post_id"`
	SortKey string `dynamodbav:"sk"`
}

func tagSortKey(createdAt time.Time, postID string) string {
	return createdAt.UTC().Format(tagTimeLayout) + "#" + postID
}

func (r *PostRepo) tagPuts(postID string, createdAt time.Time, tags []string) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(tags))
	for _, t := range tags {
		item, err := attributevalue.MarshalMap(tagEntry{
			Tag:     strings.ToLower(t),
			SortKey: tagSortKey(createdAt, postID),
			PostID:  postID,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal tag entry: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tagTable), Item: item},
		})
	}
	return items, nil
}

func (r *PostRepo) tagDeletes(postID string, createdAt time.Time, tags []string) []types.TransactWriteItem {
	items := make([]types.TransactWriteItem, 0, len(tags))
	for _, t := range tags {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tagTable),
				Key:       compositeKey(attrTag, strings.ToLower(t), attrSortKey, tagSortKey(createdAt, postID)),
			},
		})
	}
	return items
}

// ListByTags queries the tag index once per tag in parallel, newest first,
// then merges the hits and loads the surviving posts.
func (r *PostRepo) ListByTags(ctx context.Context, tags []string, exclude map[string]struct{}, limit int) ([]domain.Post, error) {
	if len(tags) == 0 || limit <= 0 {
		return []domain.Post{}, nil
	}
	perTag := make([][]tagHit, len(tags))
	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		g.Go(func() error {
			hits, err := r.queryTag(gctx, strings.ToLower(tag), exclude, limit)
			if err != nil {
				return fmt.Errorf("query tag %q: %w", tag, err)
			}
			perTag[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r.GetMany(ctx, mergeTagHits(perTag, exclude, limit))
}

// queryTag collects up to limit non-excluded hits for one tag.
func (r *PostRepo) queryTag(ctx context.Context, tag string, exclude map[string]struct{}, limit int) ([]tagHit, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tagTable),
		KeyConditionExpression:    aws.String("#t = :t"),
		ExpressionAttributeNames:  map[string]string{"#t": attrTag},
		ExpressionAttributeValues: map[string]types.AttributeValue{":t": strVal(tag)},
		ProjectionExpression:      aws.String("post_id, sk"),
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(tagQueryPage),
	})
	var hits []tagHit
	kept := 0
	for p.HasMorePages() && kept < limit {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []tagHit
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		for _, h := range batch {
			if _, skip := exclude[h.PostID]; skip {
				continue
			}
			hits = append(hits, h)
			kept++
		}
	}
	return hits, nil
}

// mergeTagHits flattens per-tag hits into post ids ordered newest first,
// dropping duplicates and excluded posts, capped at limit.
func mergeTagHits(perTag [][]tagHit, exclude map[string]struct{}, limit int) []string {
	var all []tagHit
	for _, hits := range perTag {
		all = append(all, hits...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].SortKey > all[j].SortKey })

	ids := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(all))
	for _, h := range all {
		if len(ids) == limit {
			break
		}
		if _, skip := exclude[h.PostID]; skip {
			continue
		}
		if _, dup := seen[h.PostID]; dup {
			continue
		}
		seen[h.PostID] = struct{}{}
		ids = append(ids, h.PostID)
	}
	return ids
}
