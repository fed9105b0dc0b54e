package codec

// Field indices used as the second half of a fieldKey, one namespace per
// payload kind so the same carry maps can serve pre-frame, post-frame, and
// item fields without collision.
const (
	fPreFacing = iota
	fPrePercent
	fPreXPos
	fPreYPos
	fPreProcessedButtons
	fPrePhysicalButtons
	fPreXAnalogUCF

	fPostFacing
	fPostPercent
	fPostXPos
	fPostYPos
	fPostInternalCharacterID
	fPostLastHittingAttackID
	fPostCurrentComboCount
	fPostLastHitBy
	fPostStocksRemaining
	fPostStateBitFlags1
	fPostStateBitFlags2
	fPostStateBitFlags3
	fPostStateBitFlags4
	fPostStateBitFlags5
	fPostLastGroundID
	fPostJumpsRemaining
	fPostLCancelStatus
	fPostHurtboxCollisionState
	fPostAnimationIndex
	fPostAttackSpeed   // velocityBuf group: AttackBasedXSpeed/YSpeed
	fPostSelfSpeed     // accelBuf group: SelfInducedAirX/Y, SelfInducedGroundX
	fPostJoltGroup     // joltBuf group: ShieldSize, ActionStateFrameCounter, MiscAS, HitlagFramesRemaining

	fItemTypeID
	fItemFacing
	fItemXPos
	fItemYPos
	fItemDamageTaken
	fItemExpirationTimer
	fItemSamusMissileType
	fItemPeachTurnipFace
	fItemIsLaunched
	fItemChargedPower
	fItemOwner
	fItemVelocity // velocityBuf group: XVelocity/YVelocity
)

// itemSlotBase offsets an item's spawn-id-derived slot away from the
// player slot range (0..7) so the two never collide in the same carry maps.
const itemSlotBase = 1000

