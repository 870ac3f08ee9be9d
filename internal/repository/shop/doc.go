// Package shop implements the key-value store holding the selected shop.
//
// The FileRepository keeps the keys "shopId" and "shopName" in a JSON object
// on disk (encoded with protojson over structpb) and can watch the file so the
// monitor resumes as soon as the UI writes a new shop.
package shop
