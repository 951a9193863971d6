// Package mongodb provides MongoDB implementations of the storage interfaces
// defined in the internal/store package, using the official
// go.mongodb.org/mongo-driver client.
//
// Tasks are stored one document per task with the task ID as _id, so the
// collection's primary key enforces ID uniqueness. Driver errors are
// translated to store sentinels by MapError before leaving the package.
package mongodb
