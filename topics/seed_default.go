package topics

// DefaultSeed is the built-in topic list used when no seed file is configured.
var DefaultSeed = []string{
	"AI Technology Trends 2024",
	"Digital Marketing Strategies",
	"Remote Work Best Practices",
	"Overcoming Spiritual Doubt",
	"Finding Peace in God's Plan",
	"The Power of Prayer in Crisis",
	"Faith Over Fear: Biblical Perspectives",
	"Divine Comfort in Times of Loss",
	"God's Love in Our Darkest Moments",
	"Stories of Biblical Resilience",
	"Trusting God When Life Hurts",
	"The Role of Faith in Healing",
	"Finding Hope After Despair",
	"God's Promises for Troubled Times",
	"Embracing Change with Faith",
	"Faith and Mental Health",
	"The Strength Found in Community",
	"Living Out Your Faith in Hard Times",
	"Biblical Figures and Their Challenges",
	"Mastering the Eisenhower Matrix",
	"The 7 Habits of Highly Effective People",
	"First Things First: Prioritizing Life",
	"Begin with the End in Mind",
	"Sharpen the Saw: Self-Renewal Techniques",
	"The Time Management Matrix",
	"Living Out Your Personal Mission Statement",
	"Synergizing: Effective Collaboration",
	"Proactivity vs. Reactivity",
	"Setting and Achieving SMART Goals",
	"The Four Quadrants of Time Management",
	"Dealing with the Tyranny of the Urgent",
	"Win-Win or No Deal: Negotiating Life",
	"The Importance of Keeping Promises to Yourself",
	"The Power of Saying No",
	"Balancing Life's Roles with Covey's Roles and Goals",
	"12 Rules for Life: An Antidote to Chaos",
	"Clean Your Room: Starting with Simple Order",
	"Stand Up Straight with Your Shoulders Back",
	"Tell the Truth - or, at Least, Don't Lie",
	"Pet a Cat When You Encounter One on the Street",
	"Rule Your Life, Not Your Emotions",
	"The Significance of Routine",
	"Hierarchy of Responsibility",
	"Embracing Meaningful Suffering",
	"The Necessity of Competence",
	"Confronting the Chaos Within",
	"Cultivating Patience Through Faith",
	"Forgiveness: A Path to Inner Peace",
	"Spiritual Growth Through Suffering",
	"The Comfort of the Psalms",
	"God’s Guidance in Life’s Wilderness",
	"Miracles in Modern Times",
	"Encouragement from the Beatitudes",
	"Faith as the Answer to Anxiety",
	"Rejoicing in Trials: James' Perspective",
	"God’s Timing vs. Our Timing",
	"The Role of Faith in Personal Renewal",
	"Finding Hope in Uncertain Times",
	"Faith Over Fear: Trusting the Process",
	"The Power of Prayer in Daily Life",
	"You Are Not Alone: Overcoming Isolation",
	"Strength for the Journey: Scriptures for Hard Times",
	"How Faith Can Restore Your Joy",
	"God’s Promises: A Light in the Darkness",
	"Building Resilience Through Faith",
	"The Beauty of Surrendering Control",
	"Navigating Grief with Grace and Faith",
	"Encouragement for the Weary Soul",
	"Letting Go of Worry: Trusting God's Plan",
	"The Role of Community in Healing",
	"Faith and Mental Health: Finding Balance",
	"Walking Through the Valley: God's Presence in Pain",
	"Renewing Your Spirit in Times of Struggle",
	"Small Steps to Strengthen Your Faith Daily",
	"When God Feels Distant: Finding Him Again",
	"Stories of Triumph Through Faith",
	"The Gift of Grace: Embracing God's Love",
	"Hope for Tomorrow: Trusting in New Beginnings",
	"Finding Peace Amidst Chaos",
	"Courage to Keep Moving Forward",
	"How Gratitude Transforms Hard Times",
	"Listening to God's Whisper in the Storm",
	"Faith in Action: Serving Others During Struggles",
	"Turning Pain Into Purpose",
	"Scriptures to Anchor Your Soul",
	"Celebrating Small Victories Through Faith",
	"Living Victoriously Even When Life Hurts",
	"Finding Peace in the Storm",
	"Overcoming Adversity with Faith",
	"The Power of Prayer: A Daily Practice",
	"The Comfort of God's Presence",
	"Hope in the Midst of Despair",
	"The Strength of the Human Spirit",
	"The Healing Power of Forgiveness",
	"Cultivating Gratitude, Even in Difficult Times",
	"The Importance of Self-Care for the Soul",
	"The Sovereignty of God: Trusting His Plan",
	"The Love of God: Unconditional and Everlasting",
	"The Promises of God: A Source of Strength",
	"The Power of God's Word: A Daily Dose of Inspiration",
	"Lessons from Biblical Figures Who Overcame",
	"The Importance of Community and Fellowship",
	"The Role of Faith in Overcoming Addiction",
	"The Power of Positive Confession",
	"The Beauty of God's Creation: A Source of Wonder",
	"The Importance of Rest and Sabbath",
	"Building a Strong Spiritual Foundation",
	"Coping with Grief and Loss",
	"Managing Stress and Anxiety",
	"Overcoming Fear and Doubt",
	"The Benefits of Meditation and Mindfulness",
	"The Importance of Setting Boundaries",
	"The Power of Positive Thinking",
	"The Art of Letting Go",
	"The Importance of Seeking Professional Help",
	"Building Resilience: A Guide to Overcoming Challenges",
}
