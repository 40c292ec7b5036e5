// Package awstest provides small in-memory fakes of the AWS clients used by this module.
// They understand only the expression shapes the module itself issues.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

type item = map[string]types.AttributeValue

// Dynamo is an in-memory DynamoDB fake. Each table has a single string partition key whose
// attribute name is registered with NewDynamo.
type Dynamo struct {
	mu      sync.Mutex
	keys    map[string]string
	Tables  map[string]map[string]item
	Calls   map[string]int
	failOps map[string]error
}

// NewDynamo returns a fake with the given table -> key attribute mapping.
func NewDynamo(keys map[string]string) *Dynamo {
	d := &Dynamo{
		keys:    keys,
		Tables:  map[string]map[string]item{},
		Calls:   map[string]int{},
		failOps: map[string]error{},
	}
	for tbl := range keys {
		d.Tables[tbl] = map[string]item{}
	}
	return d
}

// FailOn makes every subsequent call of op (e.g. "PutItem") return err. A nil err clears it.
func (d *Dynamo) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failOps, op)
		return
	}
	d.failOps[op] = err
}

// Item returns a copy of the stored item, or nil.
func (d *Dynamo) Item(table, key string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	it, ok := d.Tables[table][key]
	if !ok {
		return nil
	}
	return clone(it)
}

// Seed stores an item directly, bypassing conditions.
func (d *Dynamo) Seed(table string, it map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k, err := d.itemKey(table, it)
	if err != nil {
		panic(err)
	}
	d.Tables[table][k] = clone(it)
}

func (d *Dynamo) enter(op string) error {
	d.Calls[op]++
	return d.failOps[op]
}

func (d *Dynamo) table(name *string) (map[string]item, string, error) {
	if name == nil {
		return nil, "", errors.New("missing table name")
	}
	tbl, ok := d.Tables[*name]
	if !ok {
		return nil, "", &types.ResourceNotFoundException{Message: name}
	}
	return tbl, *name, nil
}

func (d *Dynamo) itemKey(table string, it item) (string, error) {
	attr, ok := d.keys[table]
	if !ok {
		return "", fmt.Errorf("unknown table %q", table)
	}
	v, ok := it[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("item has no string key %q", attr)
	}
	return v.Value, nil
}

func (d *Dynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("PutItem"); err != nil {
		return nil, err
	}
	tbl, name, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := d.itemKey(name, in.Item)
	if err != nil {
		return nil, err
	}
	if !conditionHolds(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, tbl[k]) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	tbl[k] = clone(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("GetItem"); err != nil {
		return nil, err
	}
	tbl, name, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := d.itemKey(name, in.Key)
	if err != nil {
		return nil, err
	}
	it, ok := tbl[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

func (d *Dynamo) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("DeleteItem"); err != nil {
		return nil, err
	}
	tbl, name, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := d.itemKey(name, in.Key)
	if err != nil {
		return nil, err
	}
	if !conditionHolds(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, tbl[k]) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(tbl, k)
	return &dyn.DeleteItemOutput{}, nil
}

func (d *Dynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("UpdateItem"); err != nil {
		return nil, err
	}
	tbl, name, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	k, err := d.itemKey(name, in.Key)
	if err != nil {
		return nil, err
	}
	current := tbl[k]
	if !conditionHolds(in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, current) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	updated, err := applyUpdate(current, in.Key, deref(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	tbl[k] = updated
	return &dyn.UpdateItemOutput{Attributes: clone(updated)}, nil
}

// Scan walks the table in key order. Limit bounds the number of items examined before the
// filter is applied, as DynamoDB does.
func (d *Dynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("Scan"); err != nil {
		return nil, err
	}
	tbl, name, err := d.table(in.TableName)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(tbl))
	for k := range tbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if len(in.ExclusiveStartKey) > 0 {
		after, err := d.itemKey(name, in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		start = sort.Search(len(keys), func(i int) bool { return keys[i] > after })
	}

	out := &dyn.ScanOutput{}
	examined := 0
	for i := start; i < len(keys); i++ {
		if in.Limit != nil && examined == int(*in.Limit) {
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				d.keys[name]: &types.AttributeValueMemberS{Value: keys[i-1]},
			}
			break
		}
		examined++
		it := tbl[keys[i]]
		if in.FilterExpression != nil && !conditionHolds(in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues, it) {
			continue
		}
		out.Items = append(out.Items, clone(it))
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(examined)
	return out, nil
}

func (d *Dynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter("TransactWriteItems"); err != nil {
		return nil, err
	}

	// first pass: evaluate every condition against the current state
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	canceled := false
	for i, ti := range in.TransactItems {
		code := "None"
		ok, err := d.transactConditionHolds(ti)
		if err != nil {
			return nil, err
		}
		if !ok {
			code = "ConditionalCheckFailed"
			canceled = true
		}
		reasons[i] = types.CancellationReason{Code: &code}
	}
	if canceled {
		msg := "Transaction cancelled, please refer cancellation reasons for specific reasons"
		return nil, &types.TransactionCanceledException{Message: &msg, CancellationReasons: reasons}
	}

	// second pass: apply
	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			tbl, name, _ := d.table(ti.Put.TableName)
			k, _ := d.itemKey(name, ti.Put.Item)
			tbl[k] = clone(ti.Put.Item)
		case ti.Update != nil:
			tbl, name, _ := d.table(ti.Update.TableName)
			k, _ := d.itemKey(name, ti.Update.Key)
			updated, err := applyUpdate(tbl[k], ti.Update.Key, deref(ti.Update.UpdateExpression), ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues)
			if err != nil {
				return nil, err
			}
			tbl[k] = updated
		case ti.Delete != nil:
			tbl, name, _ := d.table(ti.Delete.TableName)
			k, _ := d.itemKey(name, ti.Delete.Key)
			delete(tbl, k)
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (d *Dynamo) transactConditionHolds(ti types.TransactWriteItem) (bool, error) {
	var (
		tableName *string
		key       item
		cond      *string
		names     map[string]string
		values    map[string]types.AttributeValue
	)
	switch {
	case ti.Put != nil:
		tableName, key, cond, names, values = ti.Put.TableName, ti.Put.Item, ti.Put.ConditionExpression, ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues
	case ti.Update != nil:
		tableName, key, cond, names, values = ti.Update.TableName, ti.Update.Key, ti.Update.ConditionExpression, ti.Update.ExpressionAttributeNames, ti.Update.ExpressionAttributeValues
	case ti.Delete != nil:
		tableName, key, cond, names, values = ti.Delete.TableName, ti.Delete.Key, ti.Delete.ConditionExpression, ti.Delete.ExpressionAttributeNames, ti.Delete.ExpressionAttributeValues
	case ti.ConditionCheck != nil:
		tableName, key, cond, names, values = ti.ConditionCheck.TableName, ti.ConditionCheck.Key, ti.ConditionCheck.ConditionExpression, ti.ConditionCheck.ExpressionAttributeNames, ti.ConditionCheck.ExpressionAttributeValues
	default:
		return false, errors.New("empty transact item")
	}
	tbl, name, err := d.table(tableName)
	if err != nil {
		return false, err
	}
	k, err := d.itemKey(name, key)
	if err != nil {
		return false, err
	}
	return conditionHolds(cond, names, values, tbl[k]), nil
}

// conditionHolds supports attribute_exists(a), attribute_not_exists(a) and comparisons
// (=, <>, <, >) against a placeholder value, combined with AND/OR (AND binds tighter).
func conditionHolds(expr *string, names map[string]string, values map[string]types.AttributeValue, it item) bool {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true
	}
	for _, alt := range strings.Split(*expr, " OR ") {
		if allTermsHold(alt, names, values, it) {
			return true
		}
	}
	return false
}

func allTermsHold(expr string, names map[string]string, values map[string]types.AttributeValue, it item) bool {
	for _, term := range strings.Split(expr, " AND ") {
		if !termHolds(strings.TrimSpace(term), names, values, it) {
			return false
		}
	}
	return true
}

func termHolds(term string, names map[string]string, values map[string]types.AttributeValue, it item) bool {
	attrOf := func(s string) types.AttributeValue {
		if it == nil {
			return nil
		}
		return it[resolveName(strings.TrimSpace(s), names)]
	}
	valueOf := func(s string) types.AttributeValue {
		return values[strings.TrimSpace(s)]
	}
	switch {
	case strings.HasPrefix(term, "attribute_not_exists(") && strings.HasSuffix(term, ")"):
		return attrOf(term[len("attribute_not_exists("):len(term)-1]) == nil
	case strings.HasPrefix(term, "attribute_exists(") && strings.HasSuffix(term, ")"):
		return attrOf(term[len("attribute_exists("):len(term)-1]) != nil
	case strings.Contains(term, "<>"):
		lhs, rhs, _ := strings.Cut(term, "<>")
		return !equalValues(attrOf(lhs), valueOf(rhs))
	case strings.Contains(term, "<"):
		lhs, rhs, _ := strings.Cut(term, "<")
		c, ok := compareNumbers(attrOf(lhs), valueOf(rhs))
		return ok && c < 0
	case strings.Contains(term, ">"):
		lhs, rhs, _ := strings.Cut(term, ">")
		c, ok := compareNumbers(attrOf(lhs), valueOf(rhs))
		return ok && c > 0
	case strings.Contains(term, "="):
		lhs, rhs, _ := strings.Cut(term, "=")
		return equalValues(attrOf(lhs), valueOf(rhs))
	}
	return false
}

func compareNumbers(a, b types.AttributeValue) (int, bool) {
	an, ok := a.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	bn, ok := b.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	x, errA := decimal.NewFromString(an.Value)
	y, errB := decimal.NewFromString(bn.Value)
	if errA != nil || errB != nil {
		return 0, false
	}
	return x.Cmp(y), true
}

// applyUpdate supports "SET a = :x, #b = :y" and "ADD a :n" clauses, in either order.
func applyUpdate(current, key item, expr string, names map[string]string, values map[string]types.AttributeValue) (item, error) {
	out := clone(current)
	if out == nil {
		out = clone(key)
	}
	for _, clause := range splitClauses(expr) {
		verb, body, _ := strings.Cut(clause, " ")
		for _, part := range strings.Split(body, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			switch verb {
			case "SET":
				lhs, rhs, ok := strings.Cut(part, "=")
				if !ok {
					return nil, fmt.Errorf("bad SET action %q", part)
				}
				v, ok := values[strings.TrimSpace(rhs)]
				if !ok {
					return nil, fmt.Errorf("missing value %q", strings.TrimSpace(rhs))
				}
				out[resolveName(strings.TrimSpace(lhs), names)] = v
			case "ADD":
				fields := strings.Fields(part)
				if len(fields) != 2 {
					return nil, fmt.Errorf("bad ADD action %q", part)
				}
				attr := resolveName(fields[0], names)
				inc, ok := values[fields[1]].(*types.AttributeValueMemberN)
				if !ok {
					return nil, fmt.Errorf("ADD needs a number value %q", fields[1])
				}
				sum := decimal.RequireFromString(inc.Value)
				if prev, ok := out[attr].(*types.AttributeValueMemberN); ok {
					sum = sum.Add(decimal.RequireFromString(prev.Value))
				}
				out[attr] = &types.AttributeValueMemberN{Value: sum.String()}
			default:
				return nil, fmt.Errorf("unsupported update clause %q", clause)
			}
		}
	}
	return out, nil
}

func splitClauses(expr string) []string {
	var (
		clauses []string
		current []string
	)
	for _, tok := range strings.Fields(expr) {
		if tok == "SET" || tok == "ADD" || tok == "REMOVE" {
			if len(current) > 0 {
				clauses = append(clauses, strings.Join(current, " "))
			}
			current = []string{tok}
			continue
		}
		current = append(current, tok)
	}
	if len(current) > 0 {
		clauses = append(clauses, strings.Join(current, " "))
	}
	return clauses
}

func resolveName(s string, names map[string]string) string {
	if strings.HasPrefix(s, "#") {
		if n, ok := names[s]; ok {
			return n
		}
	}
	return s
}

func equalValues(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		c, ok := compareNumbers(av, bv)
		return ok && c == 0
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
