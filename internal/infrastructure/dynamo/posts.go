package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/go-api-community/internal/domain"
	"github.com/go-api-community/internal/pkg/id"
)

// Post attributes touched by partial updates.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldStatus      = "status"
	fieldGroupID     = "group_id"
	fieldVisibility  = "visibility"
	fieldTags        = "tags"
	fieldMedia       = "media"
)

const (
	batchGetMax   = 100
	sampleOversub = 3
)

// PostRepo stores posts in one table and a (tag, created_at#post_id) index
// of them in a second table so interest lookups are key-condition queries.
type PostRepo struct {
	client    *dynamodb.Client
	tableName string
	tagTable  string
}

func NewPostRepo(client *dynamodb.Client, tableName, tagTable string) *PostRepo {
	return &PostRepo{client: client, tableName: tableName, tagTable: tagTable}
}

func (r *PostRepo) Put(ctx context.Context, p *domain.Post) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	tx := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(post_id)"),
		},
	}}
	puts, err := r.tagPuts(p.PostID, p.CreatedAt, p.Tags)
	if err != nil {
		return err
	}
	tx = append(tx, puts...)

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
	if failedAt(cancellationCodes(err), 0) {
		return fmt.Errorf("post already exists: %w", domain.ErrConflict)
	}
	return err
}

// Get reads with strong consistency: callers use the result as the
// updated_at precondition of a following Update or Delete.
func (r *PostRepo) Get(ctx context.Context, postID string) (*domain.Post, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrPostID, postID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("post %w", domain.ErrNotFound)
	}
	return unmarshalPost(out.Item)
}

func (r *PostRepo) GetMany(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}
	byID := make(map[string]domain.Post, len(ids))
	seen := make(map[string]struct{}, len(ids))
	var keys []map[string]types.AttributeValue
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, strKey(attrPostID, id))
	}

	for _, batch := range chunk(keys, batchGetMax) {
		pending := map[string]types.KeysAndAttributes{r.tableName: {Keys: batch}}
		for len(pending) > 0 {
			out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, err
			}
			var posts []domain.Post
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.tableName], &posts); err != nil {
				return nil, err
			}
			for _, p := range posts {
				byID[p.PostID] = p
			}
			pending = out.UnprocessedKeys
		}
	}

	result := make([]domain.Post, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			result = append(result, p)
			delete(byID, id)
		}
	}
	return result, nil
}

func (r *PostRepo) Update(ctx context.Context, current *domain.Post, upd domain.PostUpdate) (*domain.Post, error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{attrUpdatedAt: now}
	if upd.Title != nil {
		updates[fieldTitle] = *upd.Title
	}
	if upd.Description != nil {
		updates[fieldDescription] = *upd.Description
	}
	if upd.Status != nil {
		updates[fieldStatus] = *upd.Status
	}
	if upd.GroupID != nil {
		updates[fieldGroupID] = upd.StoredGroupID()
	}
	if upd.Visibility != nil {
		updates[fieldVisibility] = *upd.Visibility
	}
	if upd.Tags != nil {
		updates[fieldTags] = upd.Tags
	}
	if upd.Media != nil {
		updates[fieldMedia] = upd.Media
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	prev, err := attributevalue.Marshal(current.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ue.Names["#cu"] = attrUpdatedAt
	ue.Values[":prev"] = prev
	cond := aws.String("attribute_exists(post_id) AND #cu = :prev")

	removed, added := diffTags(current.Tags, upd.Tags)
	if upd.Tags == nil || (len(removed) == 0 && len(added) == 0) {
		out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                           aws.String(r.tableName),
			Key:                                 strKey(attrPostID, current.PostID),
			UpdateExpression:                    aws.String(ue.Expr),
			ConditionExpression:                 cond,
			ExpressionAttributeNames:            ue.Names,
			ExpressionAttributeValues:           ue.Values,
			ReturnValues:                        types.ReturnValueAllNew,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				if len(ccf.Item) == 0 {
					return nil, fmt.Errorf("post %w", domain.ErrNotFound)
				}
				return nil, fmt.Errorf("post was modified concurrently: %w", domain.ErrConflict)
			}
			return nil, err
		}
		return unmarshalPost(out.Attributes)
	}

	tx := []types.TransactWriteItem{{
		Update: &types.Update{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey(attrPostID, current.PostID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       cond,
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		},
	}}
	tx = append(tx, r.tagDeletes(current.PostID, current.CreatedAt, removed)...)
	puts, err := r.tagPuts(current.PostID, current.CreatedAt, added)
	if err != nil {
		return nil, err
	}
	tx = append(tx, puts...)

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		if failedAt(cancellationCodes(err), 0) {
			return nil, r.conflictOrMissing(ctx, current.PostID)
		}
		return nil, err
	}
	return r.Get(ctx, current.PostID)
}

// Delete removes the post and its tag index entries. Comments are removed
// separately by the comment store.
func (r *PostRepo) Delete(ctx context.Context, p *domain.Post) error {
	prev, err := attributevalue.Marshal(p.UpdatedAt)
	if err != nil {
		return err
	}
	tx := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:                 aws.String(r.tableName),
			Key:                       strKey(attrPostID, p.PostID),
			ConditionExpression:       aws.String("attribute_exists(post_id) AND #cu = :prev"),
			ExpressionAttributeNames:  map[string]string{"#cu": attrUpdatedAt},
			ExpressionAttributeValues: map[string]types.AttributeValue{":prev": prev},
		},
	}}
	tx = append(tx, r.tagDeletes(p.PostID, p.CreatedAt, p.Tags)...)

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx}); err != nil {
		if failedAt(cancellationCodes(err), 0) {
			return r.conflictOrMissing(ctx, p.PostID)
		}
		return err
	}
	return nil
}

func (r *PostRepo) conflictOrMissing(ctx context.Context, postID string) error {
	if _, err := r.Get(ctx, postID); errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("post was modified concurrently: %w", domain.ErrConflict)
}

func (r *PostRepo) IncrementLikes(ctx context.Context, postID string) (*domain.Post, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrPostID, postID),
		UpdateExpression:          aws.String("ADD like_count :one"),
		ConditionExpression:       aws.String("attribute_exists(post_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": numVal(1)},
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("post %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return unmarshalPost(out.Attributes)
}

func (r *PostRepo) DecrementLikes(ctx context.Context, postID string) (*domain.Post, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(attrPostID, postID),
		UpdateExpression:    aws.String("SET like_count = like_count - :one"),
		ConditionExpression: aws.String("attribute_exists(post_id) AND like_count > :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":  numVal(1),
			":zero": numVal(0),
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return nil, fmt.Errorf("post %w", domain.ErrNotFound)
			}
			return nil, domain.ErrCounterUnderflow
		}
		return nil, err
	}
	return unmarshalPost(out.Attributes)
}

// Sample starts a scan at a random point of the table's key space, wraps
// around to the beginning when it runs off the end, and shuffles what it read.
// Scan order follows the partition key hash, so a random post id lands the
// start anywhere in the table.
func (r *PostRepo) Sample(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		return []domain.Post{}, nil
	}
	want := limit * sampleOversub
	seen := make(map[string]struct{}, want)
	var posts []domain.Post

	start := strKey(attrPostID, id.New())
	for _, from := range []map[string]types.AttributeValue{start, nil} {
		page, err := r.scanFrom(ctx, from, want-len(posts))
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			if _, dup := seen[p.PostID]; dup {
				continue
			}
			seen[p.PostID] = struct{}{}
			posts = append(posts, p)
		}
		if len(posts) >= want {
			break
		}
	}

	rand.Shuffle(len(posts), func(i, j int) { posts[i], posts[j] = posts[j], posts[i] })
	if len(posts) > limit {
		posts = posts[:limit]
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// scanFrom reads up to n posts following from, or from the start when from
// is nil.
func (r *PostRepo) scanFrom(ctx context.Context, from map[string]types.AttributeValue, n int) ([]domain.Post, error) {
	var posts []domain.Post
	for len(posts) < n {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: from,
			Limit:             aws.Int32(int32(n - len(posts))),
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Post
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		posts = append(posts, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		from = out.LastEvaluatedKey
	}
	return posts, nil
}

func unmarshalPost(item map[string]types.AttributeValue) (*domain.Post, error) {
	var p domain.Post
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// diffTags reports the tags present only in before and only in after.
func diffTags(before, after []string) (removed, added []string) {
	if after == nil {
		return nil, nil
	}
	inBefore := make(map[string]struct{}, len(before))
	for _, t := range before {
		inBefore[strings.ToLower(t)] = struct{}{}
	}
	inAfter := make(map[string]struct{}, len(after))
	for _, t := range after {
		t = strings.ToLower(t)
		inAfter[t] = struct{}{}
		if _, ok := inBefore[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range inBefore {
		if _, ok := inAfter[t]; !ok {
			removed = append(removed, t)
		}
	}
	return removed, added
}
