package game

// IsBidValid reports whether newBid legally supersedes previous. Any bid is
// valid when there is no previous bid. Otherwise the quantity must go up, or
// the face value must go up without the quantity going down. Ones are not
// wild: no special casing of face 1 anywhere in the rules.
func IsBidValid(newBid Bid, previous *Bid) bool {
	if previous == nil {
		return true
	}
	return newBid.Quantity > previous.Quantity ||
		(newBid.FaceValue > previous.FaceValue && newBid.Quantity >= previous.Quantity)
}

// CountFace sums, over all listed players' hands, the dice showing face.
func CountFace(players []*Player, face int) int {
	count := 0
	for _, p := range players {
		count += p.CountFace(face)
	}
	return count
}
