/*
Package ddb stores entities in a DynamoDB table using a single-table design.

Every entity type shares the table. Items carry PK and SK attributes expanded
from a key template, plus an EntityType attribute naming the schema table:

	store, err := ddb.Open[User](ctx, ddb.Config{
	    Region:    "us-east-1",
	    TableName: "app",
	}, datastore.Schema{Table: "User", IDField: "id"},
	    ddb.WithKeyTemplate("USER#{ID}"),
	)

The template must contain the {ID} macro; it defaults to "<EntityType>#{ID}".

Filters are translated into scan filter expressions scoped to the entity type.
Results are re-checked and sorted in-process, because Scan returns items in no
particular order and DynamoDB has no ends-with condition.

Throttling and transient errors are retried with linear backoff:

	ddb.WithMaxRetries(5), ddb.WithRetryBackoff(500*time.Millisecond)

Batch writes go out in chunks of 25 and unprocessed items are resubmitted.
*/
package ddb
