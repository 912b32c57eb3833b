package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Tag names are user input; $literal keeps a leading "$" from being read as
// a field path inside aggregation expressions.
func literal(v interface{}) bson.M {
	return bson.M{"$literal": v}
}

func ifNullArray(field string) bson.M {
	return bson.M{"$ifNull": bson.A{field, bson.A{}}}
}

// joinPipeline appends memberID to the tag named name, or appends a new tag
// holding only memberID. A member already present is left as is. Works on a
// freshly upserted document too, where admins and tags are missing.
func joinPipeline(name string, memberID int64) mongo.Pipeline {
	n := literal(name)
	addMember := bson.M{"$cond": bson.A{
		bson.M{"$in": bson.A{memberID, "$$t.members"}},
		"$$t.members",
		bson.M{"$concatArrays": bson.A{"$$t.members", bson.A{memberID}}},
	}}
	appendToExisting := bson.M{"$map": bson.M{
		"input": "$$tags",
		"as":    "t",
		"in": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$$t.name", n}},
			bson.D{{Key: "name", Value: "$$t.name"}, {Key: "members", Value: addMember}},
			"$$t",
		}},
	}}
	appendNew := bson.M{"$concatArrays": bson.A{
		"$$tags",
		bson.A{bson.D{{Key: "name", Value: n}, {Key: "members", Value: bson.A{memberID}}}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "admins", Value: ifNullArray("$admins")},
			{Key: "tags", Value: bson.M{"$let": bson.M{
				"vars": bson.M{"tags": ifNullArray("$tags")},
				"in": bson.M{"$cond": bson.A{
					bson.M{"$in": bson.A{n, "$$tags.name"}},
					appendToExisting,
					appendNew,
				}},
			}}},
		}}},
	}
}

// leavePipeline removes memberID from the tag named name and then drops any
// tag left without members.
func leavePipeline(name string, memberID int64) mongo.Pipeline {
	removeMember := bson.M{"$map": bson.M{
		"input": "$tags",
		"as":    "t",
		"in": bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{"$$t.name", literal(name)}},
			bson.D{
				{Key: "name", Value: "$$t.name"},
				{Key: "members", Value: bson.M{"$filter": bson.M{
					"input": "$$t.members",
					"as":    "m",
					"cond":  bson.M{"$ne": bson.A{"$$m", memberID}},
				}}},
			},
			"$$t",
		}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "tags", Value: bson.M{"$filter": bson.M{
				"input": removeMember,
				"as":    "t",
				"cond":  bson.M{"$gt": bson.A{bson.M{"$size": "$$t.members"}, 0}},
			}}},
		}}},
	}
}

// addAdminPipeline appends userID to admins unless already present.
func addAdminPipeline(userID int64) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "tags", Value: ifNullArray("$tags")},
			{Key: "admins", Value: bson.M{"$let": bson.M{
				"vars": bson.M{"admins": ifNullArray("$admins")},
				"in": bson.M{"$cond": bson.A{
					bson.M{"$in": bson.A{userID, "$$admins"}},
					"$$admins",
					bson.M{"$concatArrays": bson.A{"$$admins", bson.A{userID}}},
				}},
			}}},
		}}},
	}
}
