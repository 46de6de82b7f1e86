package domain

import "context"

// Bucket names one independently stored document.
type Bucket string

// Persistent buckets. Each holds one JSON document.
const (
	BucketTeachers          Bucket = "teachers"
	BucketCategories        Bucket = "categories"
	BucketSubjects          Bucket = "subjects"
	BucketAssignments       Bucket = "assignments"
	BucketSpecialClassrooms Bucket = "specialClassrooms"
	BucketMeetings          Bucket = "meetings"
	BucketTimetable         Bucket = "timetable"
	BucketSettings          Bucket = "settings"
	BucketLinkedGroups      Bucket = "linkedGroups"
	BucketParkingArea       Bucket = "parkingArea"
	BucketElectiveGroups    Bucket = "electiveGroups"
)

// AllBuckets lists every bucket in load order.
var AllBuckets = []Bucket{
	BucketSettings,
	BucketTeachers,
	BucketCategories,
	BucketSubjects,
	BucketSpecialClassrooms,
	BucketElectiveGroups,
	BucketAssignments,
	BucketMeetings,
	BucketTimetable,
	BucketLinkedGroups,
	BucketParkingArea,
}

// Driver identifies a concrete StateStore implementation.
type Driver string

// Supported drivers.
const (
	DriverMemory   Driver = "memory"
	DriverFile     Driver = "file"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
	DriverS3       Driver = "s3"
)

// StateStore is the durable key-value contract the core writes through to.
// Buckets are read and written independently.
type StateStore interface {
	// Load returns the stored document; ok is false when the bucket was never written.
	Load(ctx context.Context, bucket Bucket) (payload []byte, ok bool, err error)
	Save(ctx context.Context, bucket Bucket, payload []byte) error
	Driver() Driver
}
